package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	apiURL     string
	outputJSON bool
)

// SetAPIConfig sets the daemon base URL for all commands.
func SetAPIConfig(url string) {
	apiURL = url
}

// SetOutputJSON sets the output format preference.
func SetOutputJSON(json bool) {
	outputJSON = json
}

// HTTPClient is the configured client for API calls. Chat streams can
// run long, so there is no overall timeout; connection establishment
// still times out via the default transport.
var HTTPClient = &http.Client{}

func apiRequest(method, endpoint string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, apiURL+endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", apiURL, err)
	}
	return resp, nil
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := apiRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	HTTPClient.Transport = &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
	}
}
