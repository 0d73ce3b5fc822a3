package support

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/barscan/internal/server"
)

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startTestHTTPServer(server.Config{WebSocketEnabled: true, MetricsEnabled: true})
}

func (testCtx *TestContext) theServerIsRunningWithAccessTokens(tokens string) error {
	return testCtx.startTestHTTPServer(server.Config{
		AccessTokens: strings.Split(tokens, ","),
	})
}

func (testCtx *TestContext) theServerIsRunningWithARateLimitOfRequestsPerMinute(n int) error {
	return testCtx.startTestHTTPServer(server.Config{
		RateLimit: server.RateLimitConfig{Enabled: true, RequestsPerMinute: n},
	})
}

func (testCtx *TestContext) theServerIsRunningWithAnUploadLimitOfMB(mb int) error {
	return testCtx.startTestHTTPServer(server.Config{MaxUploadMB: int64(mb)})
}

func (testCtx *TestContext) iGET(endpoint string) error {
	url, err := testCtx.serverURL(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return testCtx.makeHTTPRequest(req)
}

func (testCtx *TestContext) iPOSTTheFileTo(name, endpoint string) error {
	return testCtx.uploadFile(endpoint, name, nil, nil)
}

func (testCtx *TestContext) iPOSTTheFileToWithToken(name, endpoint, token string) error {
	return testCtx.uploadFile(endpoint, name, map[string]string{"Authorization": "Bearer " + token}, nil)
}

func (testCtx *TestContext) iPOSTTheFileToWithPages(name, endpoint, pages string) error {
	return testCtx.uploadFile(endpoint, name, nil, map[string]string{"pages": pages})
}

func (testCtx *TestContext) iPOSTTheFileToTimes(name, endpoint string, n int) error {
	for range n {
		if err := testCtx.uploadFile(endpoint, name, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) iSendTheImageOverTheWebSocket(name string) error {
	return testCtx.sendOverWebSocket(name)
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var data interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return expectField(data, field, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldHaveHeader(name string) error {
	if _, ok := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; !ok {
		return fmt.Errorf("header %s missing", name)
	}
	return nil
}

// RegisterServerSteps registers steps driving the HTTP API.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with access tokens "([^"]*)"$`, testCtx.theServerIsRunningWithAccessTokens)
	sc.Step(`^the server is running with a rate limit of (\d+) requests per minute$`,
		testCtx.theServerIsRunningWithARateLimitOfRequestsPerMinute)
	sc.Step(`^the server is running with an upload limit of (\d+) MB$`, testCtx.theServerIsRunningWithAnUploadLimitOfMB)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheFileTo)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)" with token "([^"]*)"$`, testCtx.iPOSTTheFileToWithToken)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)" with pages "([^"]*)"$`, testCtx.iPOSTTheFileToWithPages)
	sc.Step(`^I POST the file "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iPOSTTheFileToTimes)
	sc.Step(`^I send the image "([^"]*)" over the websocket$`, testCtx.iSendTheImageOverTheWebSocket)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should have header "([^"]*)"$`, testCtx.theResponseShouldHaveHeader)
}
