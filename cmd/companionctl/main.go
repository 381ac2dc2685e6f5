// Package main is a terminal client for the companion server. It lists
// characters, opens a chat loop against one, and prints replies and media
// events as they land.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server address")
	token := flag.String("token", os.Getenv("COMPANION_TOKEN"), "bearer token, if the server requires one")
	characterID := flag.String("character", "", "character id to chat with (default: first)")
	flag.Parse()

	c := &client{base: strings.TrimRight(*addr, "/"), token: *token, http: &http.Client{Timeout: 5 * time.Minute}}

	characters, err := c.listCharacters()
	if err != nil {
		log.Fatalf("failed to list characters: %v", err)
	}
	if len(characters) == 0 {
		log.Fatal("no characters on the server yet")
	}

	target := characters[0]
	if *characterID != "" {
		target = nil
		for _, ch := range characters {
			if ch.ID == *characterID {
				target = ch
				break
			}
		}
		if target == nil {
			log.Fatalf("no character with id %q", *characterID)
		}
	}

	fmt.Printf("Chatting with %s (intimacy %.1f). Ctrl-D to quit.\n", target.Name(), target.IntimacyLevel)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		turn, err := c.send(target.ID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printTurn(target.Name(), turn)
	}
}

type characterSummary struct {
	ID            string  `json:"id"`
	IntimacyLevel float64 `json:"intimacyLevel"`
	Profile       struct {
		BasicInfo struct {
			Name string `json:"name"`
		} `json:"basicInfo"`
	} `json:"profile"`
}

func (s *characterSummary) Name() string { return s.Profile.BasicInfo.Name }

type turnPayload struct {
	Reply    string `json:"reply"`
	Messages []struct {
		Sender        string  `json:"sender"`
		Content       string  `json:"content"`
		Type          string  `json:"type"`
		AudioDuration float64 `json:"audioDuration"`
	} `json:"messages"`
	Power *struct {
		Level  string `json:"level"`
		Effect string `json:"effect"`
	} `json:"power"`
	ImageOffer *struct {
		JobID   string `json:"jobId"`
		Refused bool   `json:"refused"`
		Reason  string `json:"reason"`
	} `json:"imageOffer"`
	Gallery []int64 `json:"gallery"`
}

func printTurn(name string, turn *turnPayload) {
	fmt.Printf("%s: %s\n", name, turn.Reply)
	for _, m := range turn.Messages {
		switch m.Type {
		case "voice":
			fmt.Printf("  [voice message, %.1fs: %q]\n", m.AudioDuration, m.Content)
		case "image":
			fmt.Printf("  [sent a photo: %s]\n", m.Content)
		}
	}
	if turn.Power != nil {
		fmt.Printf("  [power released at %s: %s]\n", turn.Power.Level, turn.Power.Effect)
	}
	if turn.ImageOffer != nil {
		if turn.ImageOffer.Refused {
			fmt.Printf("  [image refused: %s; retry with job %s]\n", turn.ImageOffer.Reason, turn.ImageOffer.JobID)
		} else {
			fmt.Printf("  [image failed: %s; retry with job %s]\n", turn.ImageOffer.Reason, turn.ImageOffer.JobID)
		}
	}
	for _, id := range turn.Gallery {
		fmt.Printf("  [gallery entry %d added]\n", id)
	}
}

func (c *client) listCharacters() ([]*characterSummary, error) {
	var characters []*characterSummary
	if err := c.getJSON("/api/characters", &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

func (c *client) send(characterID, text string) (*turnPayload, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+"/api/characters/"+characterID+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var turn turnPayload
	if err := c.doJSON(req, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *client) doJSON(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}
