// Package remotesvc is the client of the Formation Pro REST API.
package remotesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

const (
	sheetsPath = "/fichepresence"
	uploadPath = sheetsPath + "/upload"
	listPath   = sheetsPath + "/all"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (err *StatusError) Error() string {
	body := err.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: status %d: %s", err.Method, err.Path, err.Code, strings.TrimSpace(body))
}

// IsNotFound reports whether err is a 404 answer of the API.
func IsNotFound(err error) bool {
	var sErr *StatusError
	return errors.As(err, &sErr) && sErr.Code == http.StatusNotFound
}

type Client struct {
	baseURL string
	rest    *rest.Client
	logger  core.Logger
}

var _ attendance.RemoteStore = (*Client)(nil)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.API.BaseURL, "/"),
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.API.Timeout}},
		logger:  logger,
	}
}

// BaseURL is the origin stored file paths are relative to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) FetchSessionSheet(ctx context.Context, sessionID string) (attendance.SessionRecord, error) {
	var dto sessionSheetDTO
	if err := c.getJSON(ctx, sheetsPath+"/"+url.PathEscape(sessionID), &dto); err != nil {
		return attendance.SessionRecord{}, errors.Wrap(err, "fetching session sheet")
	}
	return dto.record(), nil
}

// UploadSheet posts the sheet as a multipart form: sessionId and file.
func (c *Client) UploadSheet(ctx context.Context, up attendance.Upload) error {
	body, contentType, err := uploadForm(up)
	if err != nil {
		return errors.Wrap(err, "building upload form")
	}
	_, err = c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.baseURL + uploadPath,
		Headers: map[string]string{"Content-Type": contentType, "Accept": "application/json"},
		Body:    body,
	})
	return errors.Wrap(err, "uploading sheet")
}

func (c *Client) ListSheets(ctx context.Context) ([]attendance.StoredSheet, error) {
	var dtos []storedSheetDTO
	if err := c.getJSON(ctx, listPath, &dtos); err != nil {
		return nil, errors.Wrap(err, "listing stored sheets")
	}

	sheets := make([]attendance.StoredSheet, 0, len(dtos))
	for _, dto := range dtos {
		sheet, err := dto.storedSheet()
		if err != nil {
			c.logger.Warn(fmt.Sprintf("skipping stored sheet: %v", err), core.Fields{"id": string(dto.ID)})
			continue
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (c *Client) DeleteSheet(ctx context.Context, id int) error {
	_, err := c.send(ctx, rest.Request{
		Method:  rest.Delete,
		BaseURL: c.baseURL + sheetsPath + "/" + strconv.Itoa(id),
	})
	return errors.Wrap(err, "deleting stored sheet")
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	res, err := c.send(ctx, rest.Request{
		Method:  rest.Get,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return err
	}
	if err = json.Unmarshal([]byte(res.Body), dst); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{
			Method: string(req.Method),
			Path:   strings.TrimPrefix(req.BaseURL, c.baseURL),
			Code:   res.StatusCode,
			Body:   res.Body,
		}
	}
	return res, nil
}

func uploadForm(up attendance.Upload) ([]byte, string, error) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	if err := w.WriteField("sessionId", up.SessionID); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(up.FileName)))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err = part.Write(up.Content); err != nil {
		return nil, "", err
	}

	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
