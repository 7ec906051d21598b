package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core"
)

const pdfContentType = "application/pdf"

var (
	NowFunc   = time.Now   // mockable
	sleepFunc = time.Sleep // mockable

	msgUploadSucceeded = "Fiche de présence enregistrée sur le serveur."
	msgUploadFailed    = "Erreur lors de l'enregistrement de la fiche de présence sur le serveur."
)

type (
	// RemoteStore is the Formation Pro REST API.
	RemoteStore interface {
		FetchSessionSheet(ctx context.Context, sessionID string) (SessionRecord, error)
		UploadSheet(ctx context.Context, upload Upload) error
		ListSheets(ctx context.Context) ([]StoredSheet, error)
		DeleteSheet(ctx context.Context, id int) error
	}

	// Renderer lays out and encodes a Sheet as a printable document.
	Renderer interface {
		Render(sheet Sheet, generatedAt time.Time) ([]byte, error)
	}

	DraftRepository interface {
		CreateDraft(ctx context.Context, draft Draft) (Draft, error)
		GetDraft(ctx context.Context, id string) (Draft, error)
		UpdateDraft(ctx context.Context, draft Draft) (Draft, error)
		DeleteDraft(ctx context.Context, id string) error
	}

	// DeliverFunc hands the artifact over to the user (download, file...).
	DeliverFunc func(art Artifact) error

	Service struct {
		remote   RemoteStore
		renderer Renderer
		drafts   DraftRepository
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	conf *core.Config,
	logger core.Logger,
	remote RemoteStore,
	renderer Renderer,
	drafts DraftRepository,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		remote:   remote,
		renderer: renderer,
		drafts:   drafts,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// HydrateSheet returns the sheet of a remote session.
// Any failure is logged and the default sheet is returned instead.
func (svc *Service) HydrateSheet(ctx context.Context, sessionID string) (Sheet, bool) {
	sheet := NewSheet(NowFunc())
	if sessionID == "" {
		return sheet, false
	}
	rec, err := svc.remote.FetchSessionSheet(ctx, sessionID)
	if err != nil {
		svc.logger.Error(
			fmt.Sprintf("fetching session %q attendance sheet: %v", sessionID, err),
			errors.Wrap(err, "fetching session attendance sheet"),
			core.Fields{"session_id": sessionID},
		)
		return sheet, false
	}
	return sheet.Hydrate(rec), true
}

// NewDraft opens a new form, hydrated from the remote session when sessionID is set.
func (svc *Service) NewDraft(ctx context.Context, sessionID string) (Draft, error) {
	sheet, _ := svc.HydrateSheet(ctx, sessionID)
	now := NowFunc().UTC()
	draft := Draft{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Sheet:     sheet,
		CreatedAt: now,
		UpdatedAt: now,
	}
	draft, err := svc.drafts.CreateDraft(ctx, draft)
	if err != nil {
		return Draft{}, errors.Wrap(err, "creating draft")
	}
	return draft, nil
}

func (svc *Service) GetDraft(ctx context.Context, id string) (Draft, error) {
	return svc.drafts.GetDraft(ctx, id)
}

func (svc *Service) DeleteDraft(ctx context.Context, id string) error {
	return svc.drafts.DeleteDraft(ctx, id)
}

// EditDraft applies `edit` to the draft's sheet and saves the result.
func (svc *Service) EditDraft(ctx context.Context, id string, edit func(Sheet) (Sheet, error)) (Draft, error) {
	draft, err := svc.drafts.GetDraft(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	sheet, err := edit(draft.Sheet)
	if err != nil {
		return Draft{}, err
	}
	draft.Sheet = sheet
	draft.UpdatedAt = NowFunc().UTC()
	draft, err = svc.drafts.UpdateDraft(ctx, draft)
	if err != nil {
		return Draft{}, errors.Wrap(err, "updating draft")
	}
	return draft, nil
}

func (svc *Service) SetMeta(ctx context.Context, id string, meta SessionMeta) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		s = s.clone()
		s.Meta = meta
		return s, nil
	})
}

func (svc *Service) AddTimeSlot(ctx context.Context, id string) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.AddTimeSlot(NowFunc()), nil
	})
}

func (svc *Service) UpdateTimeSlot(ctx context.Context, id string, idx int, field, value string) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.UpdateTimeSlot(idx, field, value)
	})
}

func (svc *Service) RemoveTimeSlot(ctx context.Context, id string, idx int) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.RemoveTimeSlot(idx)
	})
}

func (svc *Service) AddParticipant(ctx context.Context, id string) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.AddParticipant(), nil
	})
}

func (svc *Service) UpdateParticipant(ctx context.Context, id string, idx int, field, value string) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.UpdateParticipant(idx, field, value)
	})
}

func (svc *Service) RemoveParticipant(ctx context.Context, id string, idx int) (Draft, error) {
	return svc.EditDraft(ctx, id, func(s Sheet) (Sheet, error) {
		return s.RemoveParticipant(idx)
	})
}

// Generate renders the sheet, tries to store it remotely, then delivers it.
// The steps always run in this order. A failed upload is notified and never blocks the delivery.
func (svc *Service) Generate(
	ctx context.Context,
	sessionID string,
	sheet Sheet,
	notifier core.Notifier,
	deliver DeliverFunc,
) (Artifact, error) {
	if svc.renderer == nil {
		return Artifact{}, ErrNoRenderer
	}

	// 1. build
	now := NowFunc()
	content, err := svc.renderer.Render(sheet, now)
	if err != nil {
		return Artifact{}, errors.Wrap(err, "rendering sheet")
	}
	art := Artifact{
		SessionID:   sessionID,
		FileName:    FileName(sheet.Meta.Instructor, now),
		ContentType: pdfContentType,
		Content:     content,
		GeneratedAt: now,
	}

	// 2. best-effort persistence
	if err = svc.upload(ctx, art); err != nil {
		svc.logger.Error(
			fmt.Sprintf("uploading attendance sheet: %v", err),
			errors.Wrap(err, "uploading attendance sheet"),
			core.Fields{"session_id": sessionID, "file": art.FileName},
		)
		notify(notifier, core.NotifyError, msgUploadFailed)
	} else {
		notify(notifier, core.NotifySuccess, msgUploadSucceeded)
	}

	// 3. local delivery
	if deliver != nil {
		if err = deliver(art); err != nil {
			return art, errors.Wrap(err, "delivering sheet")
		}
	}

	svc.mail(art, sheet)
	return art, nil
}

// upload sends the artifact to the remote store, retrying up to conf.API.UploadRetries times.
// Waits 500ms longer between each attempt.
func (svc *Service) upload(ctx context.Context, art Artifact) error {
	up := Upload{SessionID: art.SessionID, FileName: art.FileName, Content: art.Content}

	var retries int
	if svc.conf != nil && svc.conf.API.UploadRetries > 0 {
		retries = svc.conf.API.UploadRetries
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				break
			}
			sleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
		if err = svc.remote.UploadSheet(ctx, up); err == nil {
			return nil
		}
	}
	return err
}

// mail sends the artifact to the configured recipients, in the background.
func (svc *Service) mail(art Artifact, sheet Sheet) {
	if svc.mailSvc == nil || svc.conf == nil {
		return
	}
	to := svc.conf.MailRecipients()
	if len(to) == 0 {
		return
	}

	msg := &core.EmailMessage{
		To:      to,
		Subject: "Feuille de présence - " + sheet.Meta.Title,
		TextContent: fmt.Sprintf(
			"Veuillez trouver ci-joint la feuille de présence de la formation %q (%s), formateur : %s.\r\nDates : %s",
			sheet.Meta.Title, sheet.Meta.TotalDuration, sheet.Meta.Instructor, FormatSlotDates(sheet.Slots)),
	}
	msg.Attach(art.Content, art.FileName, art.ContentType)
	svc.mailSvc.SendMessages(msg)
}

func notify(notifier core.Notifier, level core.NotificationLevel, msg string) {
	if notifier != nil {
		notifier.Notify(core.Notification{Level: level, Message: msg})
	}
}
