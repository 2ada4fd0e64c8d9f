package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout; generation can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func dataField(body []byte, key string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := data[key].(string)
	return value
}

func main() {
	color.Cyan("🚀 Document Chat API Smoke Test\n")

	email := os.Getenv("PROBE_EMAIL")
	password := os.Getenv("PROBE_PASSWORD")
	if email == "" || password == "" {
		color.Red("Set PROBE_EMAIL and PROBE_PASSWORD (a verified account) first")
		os.Exit(1)
	}

	// 1. Login
	color.Yellow("\n[AUTH] 1. Login")
	resp, body, err := sendRequest("POST", "/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	token := dataField(body, "access_token")
	if token == "" {
		color.Red("No access token in response")
		prettyPrint(json.RawMessage(body))
		os.Exit(1)
	}

	// 2. Create Session
	color.Yellow("\n[CHAT] 2. Create Session")
	resp, body, err = sendRequest("POST", "/chat/v1/session", token, map[string]interface{}{
		"title": "Smoke test session",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	sessionID := dataField(body, "id")
	fmt.Printf("Session ID: %s\n", sessionID)
	if sessionID == "" {
		os.Exit(1)
	}

	// 3. Upload Document (page texts; extraction happens client-side)
	color.Yellow("\n[DOC] 3. Upload Document")
	resp, body, err = sendRequest("POST", "/document/v1/upload", token, map[string]interface{}{
		"chat_session_id": sessionID,
		"file_name":       "photosynthesis.pdf",
		"pages": []map[string]interface{}{
			{"page_number": 1, "content": "Photosynthesis converts light energy into chemical energy stored in glucose. It takes place in the chloroplasts of plant cells."},
			{"page_number": 2, "content": "The light-dependent reactions produce ATP and NADPH, which the Calvin cycle uses to fix carbon dioxide into sugars."},
		},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	documentID := dataField(body, "id")
	fmt.Printf("Document ID: %s\n", documentID)

	// 4. Poll until ingestion settles
	color.Yellow("\n[DOC] 4. Wait for Ingestion")
	status := "uploaded"
	for i := 0; i < 30; i++ {
		time.Sleep(2 * time.Second)
		_, listBody, err := sendRequest("GET", "/document/v1/session/"+sessionID, token, nil)
		if err != nil {
			color.Red("Poll failed: %v", err)
			continue
		}
		var parsed struct {
			Data []struct {
				Id     string `json:"id"`
				Status string `json:"status"`
			} `json:"data"`
		}
		if err := json.Unmarshal(listBody, &parsed); err != nil {
			continue
		}
		for _, doc := range parsed.Data {
			if doc.Id == documentID {
				status = doc.Status
			}
		}
		fmt.Printf("  status: %s\n", status)
		if status == "ready" || status == "failed" {
			break
		}
	}
	if status != "ready" {
		color.Red("Document never became ready (status=%s); answers will be apologies", status)
	}

	// 5. Ask a question
	color.Yellow("\n[CHAT] 5. Send Chat")
	resp, body, err = sendRequest("POST", "/chat/v1/chat", token, map[string]interface{}{
		"chat_session_id": sessionID,
		"chat":            "What does the document say about the Calvin cycle?",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var chatResp map[string]interface{}
	json.Unmarshal(body, &chatResp)
	prettyPrint(chatResp)

	// 6. History
	color.Yellow("\n[CHAT] 6. Get History")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID+"/history", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyResp map[string]interface{}
	json.Unmarshal(body, &historyResp)
	prettyPrint(historyResp)

	// 7. Cleanup
	color.Yellow("\n[CHAT] 7. Delete Session")
	resp, _, err = sendRequest("DELETE", "/chat/v1/session/"+sessionID, token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	color.Cyan("\n✅ Smoke test finished")
}
