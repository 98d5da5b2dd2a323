package support

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/MeKo-Tech/cardscan/internal/ner"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/MeKo-Tech/cardscan/internal/server"
	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/cucumber/godog"
)

// HTTPTestServer runs the card API in-process on the fragments engine.
type HTTPTestServer struct {
	Server *httptest.Server
	Store  *store.GormStore
}

// Close stops the server and closes the store.
func (s *HTTPTestServer) Close() error {
	s.Server.Close()
	return s.Store.Close()
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the card server is running$`, testCtx.theCardServerIsRunning)
	sc.Step(`^the card server is running with a limit of (\d+) requests? per minute$`, testCtx.theCardServerIsRunningWithLimit)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I post the contents of "([^"]*)" to "([^"]*)"$`, testCtx.iPostTheContentsOfTo)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the upload directory should contain "([^"]*)"$`, testCtx.theUploadDirectoryShouldContain)
}

func (testCtx *TestContext) theCardServerIsRunning() error {
	return testCtx.startServer(server.RateLimitConfig{})
}

func (testCtx *TestContext) theCardServerIsRunningWithLimit(perMinute int) error {
	return testCtx.startServer(server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute})
}

func (testCtx *TestContext) startServer(rl server.RateLimitConfig) error {
	if testCtx.Server != nil {
		return fmt.Errorf("server already running")
	}

	st, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: testCtx.Path("cards.db")})
	if err != nil {
		return err
	}
	extractor := card.NewExtractor(card.WithRecognizer(ner.NewGazetteer()))
	svc, err := intake.NewService(intake.Config{UploadDir: testCtx.Path("uploads")},
		ocr.NewFragmentFileEngine(), extractor, intake.WithStore(st))
	if err != nil {
		_ = st.Close()
		return err
	}
	srv, err := server.NewServer(server.Config{Version: "test", RateLimit: rl}, svc)
	if err != nil {
		_ = st.Close()
		return err
	}

	testCtx.Server = &HTTPTestServer{Server: httptest.NewServer(srv.Handler()), Store: st}
	return nil
}

func (testCtx *TestContext) iUploadTo(name, route string) error {
	if testCtx.Server == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("card", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, route, writer.FormDataContentType(), &body)
}

func (testCtx *TestContext) iPostTheContentsOfTo(name, route string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, route, "application/json", bytes.NewReader(data))
}

func (testCtx *TestContext) iRequest(route string) error {
	return testCtx.do(http.MethodGet, route, "", nil)
}

func (testCtx *TestContext) do(method, route, contentType string, body io.Reader) error {
	if testCtx.Server == nil {
		return fmt.Errorf("server is not running")
	}
	req, err := http.NewRequest(method, testCtx.Server.Server.URL+route, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := testCtx.Server.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("status is %d, want %d\nbody: %s", testCtx.LastHTTPStatusCode, status, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(want string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, want) {
		return fmt.Errorf("response does not contain %q\nbody: %s", want, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, want string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, path, want)
}

func (testCtx *TestContext) theUploadDirectoryShouldContain(name string) error {
	return testCtx.theFileShouldExist(filepath.Join("uploads", name))
}
