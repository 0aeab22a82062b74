package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/adventure"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// AdventureResponse mirrors the API's adventure payload
type AdventureResponse struct {
	Adventure *adventure.Adventure `json:"adventure"`
	Turns     []adventure.Turn     `json:"turns,omitempty"`
}

type startAdventureRequest struct {
	Scenario string `json:"scenario"`
	Name     string `json:"name,omitempty"`
}

type generateTurnRequest struct {
	Text       string `json:"text"`
	ActionType string `json:"action_type,omitempty"`
}

func listScenarios(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	resp, err := client.Get(baseURL + "/v1/scenarios")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var scenarioMap map[string]string
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal(body, &scenarioMap); err != nil {
		return nil, nil, err
	}

	var names []string
	for name := range scenarioMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, scenarioMap, nil
}

func startAdventure(client *http.Client, baseURL string, scenarioFile string) (*AdventureResponse, error) {
	jsonData, err := json.Marshal(startAdventureRequest{Scenario: scenarioFile})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/adventures",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp.StatusCode, body, "failed to start adventure")
	}

	var created AdventureResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to parse adventure response: %w", err)
	}

	return &created, nil
}

func getAdventure(client *http.Client, baseURL string, id uuid.UUID) (*AdventureResponse, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/adventures/%s", baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body, "failed to get adventure")
	}

	var adv AdventureResponse
	if err := json.Unmarshal(body, &adv); err != nil {
		return nil, fmt.Errorf("failed to parse adventure response: %w", err)
	}
	return &adv, nil
}

func generateTurn(client *http.Client, baseURL string, id uuid.UUID, text string, actionType string) (*adventure.Turn, error) {
	jsonData, err := json.Marshal(generateTurnRequest{Text: text, ActionType: actionType})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return postTurn(client, fmt.Sprintf("%s/v1/adventures/%s/generate", baseURL, id), jsonData)
}

func continueTurn(client *http.Client, baseURL string, id uuid.UUID) (*adventure.Turn, error) {
	return postTurn(client, fmt.Sprintf("%s/v1/adventures/%s/continue", baseURL, id), nil)
}

func retryTurn(client *http.Client, baseURL string, id uuid.UUID) (*adventure.Turn, error) {
	return postTurn(client, fmt.Sprintf("%s/v1/adventures/%s/retry", baseURL, id), nil)
}

func postTurn(client *http.Client, url string, jsonData []byte) (*adventure.Turn, error) {
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp.StatusCode, body, "turn request failed")
	}

	var turn adventure.Turn
	if err := json.Unmarshal(body, &turn); err != nil {
		return nil, fmt.Errorf("failed to parse turn response: %w", err)
	}
	return &turn, nil
}

func apiError(status int, body []byte, context string) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("%s: %s", context, errorResp.Error)
}
