package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/formationpro/fichepresence/core/attendance"
)

type (
	Creneau struct {
		Date       string `json:"date"`
		HeureDebut string `json:"heure_debut"`
		HeureFin   string `json:"heure_fin"`
	}

	Personne struct {
		Nom    string `json:"nom"`
		Prenom string `json:"prenom"`
	}

	// Session is a session sheet as served by the Formation Pro API.
	Session struct {
		Titre        string      `json:"titre"`
		Duree        interface{} `json:"duree"` // string or number
		Formateur    string      `json:"formateur"`
		Creneaux     []Creneau   `json:"creneaux"`
		Participants []Personne  `json:"participants"`
	}

	// Record is a stored sheet as listed by the Formation Pro API.
	Record struct {
		ID             int    `json:"id"`
		IDSession      string `json:"id_session"`
		CheminFichier  string `json:"chemin_fichier"`
		DateGeneration string `json:"date_generation"`
		TitreSession   string `json:"titreSession"`
	}

	ReceivedUpload struct {
		SessionID   string
		FileName    string
		ContentType string
		Content     []byte
	}
)

// FakeAPI is an in-process Formation Pro API.
type FakeAPI struct {
	*httptest.Server

	mu          sync.Mutex
	sessions    map[string]Session
	records     []Record
	nextID      int
	uploads     []ReceivedUpload
	deleted     []int
	failUploads bool
	failList    bool
	failDelete  bool
}

// NewFakeAPI starts a fake API, closed at the end of the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{sessions: make(map[string]Session), nextID: 1}

	e := echo.New()
	e.HideBanner = true
	e.GET("/fichepresence/all", api.list)
	e.GET("/fichepresence/:id", api.fetch)
	e.POST("/fichepresence/upload", api.upload)
	e.DELETE("/fichepresence/:id", api.delete)

	api.Server = httptest.NewServer(e)
	t.Cleanup(api.Server.Close)
	return api
}

func (api *FakeAPI) AddSession(id string, s Session) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.sessions[id] = s
}

// AddRecords stores records as is; IDs left to zero are assigned.
func (api *FakeAPI) AddRecords(records ...Record) {
	api.mu.Lock()
	defer api.mu.Unlock()
	for _, r := range records {
		if r.ID == 0 {
			r.ID = api.nextID
		}
		if r.ID >= api.nextID {
			api.nextID = r.ID + 1
		}
		api.records = append(api.records, r)
	}
}

func (api *FakeAPI) Records() []Record {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]Record(nil), api.records...)
}

func (api *FakeAPI) Uploads() []ReceivedUpload {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]ReceivedUpload(nil), api.uploads...)
}

func (api *FakeAPI) Deleted() []int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]int(nil), api.deleted...)
}

// Fail makes the given operations answer with a 500 status.
func (api *FakeAPI) Fail(uploads, list, delete bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.failUploads, api.failList, api.failDelete = uploads, list, delete
}

func (api *FakeAPI) fetch(c echo.Context) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	s, ok := api.sessions[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "session introuvable"})
	}
	return c.JSON(http.StatusOK, s)
}

func (api *FakeAPI) list(c echo.Context) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.failList {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "erreur"})
	}
	records := api.records
	if records == nil {
		records = []Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (api *FakeAPI) upload(c echo.Context) error {
	sessionID := c.FormValue("sessionId")
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	api.uploads = append(api.uploads, ReceivedUpload{
		SessionID:   sessionID,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	})
	if api.failUploads {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "erreur"})
	}

	rec := Record{
		ID:             api.nextID,
		IDSession:      sessionID,
		CheminFichier:  path.Join("uploads", fh.Filename),
		DateGeneration: time.Now().UTC().Format(time.RFC3339),
		TitreSession:   api.sessions[sessionID].Titre,
	}
	api.nextID++
	api.records = append(api.records, rec)
	return c.JSON(http.StatusCreated, rec)
}

func (api *FakeAPI) delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "id invalide"})
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.failDelete {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "erreur"})
	}
	for i, r := range api.records {
		if r.ID == id {
			api.records = append(api.records[:i], api.records[i+1:]...)
			api.deleted = append(api.deleted, id)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "fiche introuvable"})
}

// SampleSession is a two-slot session with three participants, as served by the API.
func SampleSession() Session {
	return Session{
		Titre:     "Excel avancé",
		Duree:     14,
		Formateur: "Jean Martin",
		Creneaux: []Creneau{
			{Date: "2026-10-20T00:00:00.000Z", HeureDebut: "09:00:00", HeureFin: "12:30:00"},
			{Date: "2026-10-21T00:00:00.000Z", HeureDebut: "14:00:00", HeureFin: "17:00:00"},
		},
		Participants: []Personne{
			{Nom: "Durand", Prenom: "Alice"},
			{Nom: "Petit", Prenom: "Bruno"},
			{Nom: "Moreau", Prenom: "Chloé"},
		},
	}
}

// SampleSheet is the sheet SampleSession hydrates to.
func SampleSheet() attendance.Sheet {
	return attendance.Sheet{
		Meta: attendance.SessionMeta{Title: "Excel avancé", TotalDuration: "14", Instructor: "Jean Martin"},
		Slots: []attendance.TimeSlot{
			{Date: "2026-10-20", Start: "09:00", End: "12:30"},
			{Date: "2026-10-21", Start: "14:00", End: "17:00"},
		},
		Participants: []attendance.Participant{
			{LastName: "Durand", FirstName: "Alice"},
			{LastName: "Petit", FirstName: "Bruno"},
			{LastName: "Moreau", FirstName: "Chloé"},
		},
	}
}

// SampleRecords returns n stored sheets of session "42" generated on 2024-06-03.
func SampleRecords(n int) []Record {
	records := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, Record{
			ID:             i,
			IDSession:      "42",
			CheminFichier:  "uploads/Feuille de présence - " + strconv.Itoa(i) + ".pdf",
			DateGeneration: "2024-06-03T10:00:00.000Z",
			TitreSession:   "Session " + strconv.Itoa(i),
		})
	}
	return records
}
