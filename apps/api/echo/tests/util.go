package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/formationpro/fichepresence/apps/api/echo"
	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
	emailsvc "github.com/formationpro/fichepresence/services/email"
	logsvc "github.com/formationpro/fichepresence/services/logger"
	pdfsvc "github.com/formationpro/fichepresence/services/pdf"
	remotesvc "github.com/formationpro/fichepresence/services/remote"
	inmemdb "github.com/formationpro/fichepresence/storage/database/inmem"
	testutil "github.com/formationpro/fichepresence/tests"
)

// today is the date every test runs at.
var today = time.Date(2026, time.October, 17, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	app     *Server
	api     *testutil.FakeAPI
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, mailTo ...string) testEnv {
	t.Helper()

	origNow := attendance.NowFunc
	attendance.NowFunc = func() time.Time { return today }
	t.Cleanup(func() { attendance.NowFunc = origNow })

	api := testutil.NewFakeAPI(t)
	conf := core.NewTestConfig(api.URL)
	conf.Sheet.MailTo = mailTo

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", 0), conf)
	logger.Enable(false)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	renderer, err := pdfsvc.NewRenderer(conf)
	require.NoError(t, err)
	remote := remotesvc.NewClient(conf, logger)
	sheetSvc := attendance.NewService(conf, logger, remote, renderer, inmemdb.NewDraftRepository(), mailSvc)

	translator := core.NewTranslator()

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SheetSvc:   sheetSvc,
			Registry:   attendance.NewRegistry(remote, logger),
			Validate:   core.NewValidate(translator),
			Translator: translator,
		},
	)
	return testEnv{app: app, api: api, mailSvc: mailSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// serve runs a request against the app.
func (env testEnv) serve(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
