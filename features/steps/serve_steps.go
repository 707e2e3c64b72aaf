//go:build integration

package steps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
)

// serveContext holds test state for file serving scenarios
type serveContext struct {
	env      *appEnv
	response *httptest.ResponseRecorder
}

var sharedServeContext *serveContext

func InitializeServeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		env, err := newAppEnv(200 << 20)
		if err != nil {
			return c, err
		}
		sharedServeContext = &serveContext{env: env}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if sharedServeContext != nil {
			sharedServeContext.env.close()
		}
		sharedServeContext = nil
		return c, nil
	})

	ctx.Step(`^the output directory contains "([^"]*)" of (\d+) bytes$`, theOutputDirectoryContains)
	ctx.Step(`^I request "([^"]*)"$`, iRequest)
	ctx.Step(`^I request "([^"]*)" with range "([^"]*)"$`, iRequestWithRange)
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response should carry (\d+) bytes$`, theResponseShouldCarryBytes)
	ctx.Step(`^the Content-Range header should be "([^"]*)"$`, theContentRangeHeaderShouldBe)
}

func theOutputDirectoryContains(name string, size int) error {
	data := make([]byte, size)
	return os.WriteFile(filepath.Join(sharedServeContext.env.store.Dir(), name), data, 0o644)
}

func iRequest(name string) error {
	return iRequestWithRange(name, "")
}

func iRequestWithRange(name, rangeHeader string) error {
	s := sharedServeContext
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+name, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	s.response = httptest.NewRecorder()
	s.env.router.ServeHTTP(s.response, req)
	return nil
}

func theResponseStatusShouldBe(code int) error {
	if got := sharedServeContext.response.Code; got != code {
		return fmt.Errorf("expected status %d, got %d", code, got)
	}
	return nil
}

func theResponseShouldCarryBytes(n int) error {
	if got := sharedServeContext.response.Body.Len(); got != n {
		return fmt.Errorf("expected %d body bytes, got %d", n, got)
	}
	return nil
}

func theContentRangeHeaderShouldBe(want string) error {
	if got := sharedServeContext.response.Header().Get("Content-Range"); got != want {
		return fmt.Errorf("expected Content-Range %q, got %q", want, got)
	}
	return nil
}
