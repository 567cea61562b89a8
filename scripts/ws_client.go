// Package main submits the pickup and delivery sample for an asynchronous solve
// and prints the progress events streamed for the run.
//
//	go run ./scripts
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"fleetopt/internal/model"
	"fleetopt/internal/problem"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	doc := problem.PickupDeliverySample()
	doc.Search.TimeLimit = "5s"
	body, err := json.Marshal(doc)
	if err != nil {
		log.Fatal(err)
	}
	resp, err := http.Post(base+"/v1/solve?async=true&cache=false", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("solve: %s", resp.Status)
	}
	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.ID + "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()
	_ = c.SetReadDeadline(time.Now().Add(time.Minute))

	for {
		var evt model.ProgressEvent
		if err := c.ReadJSON(&evt); err != nil {
			log.Printf("read: %v", err)
			return
		}
		log.Printf("WS <- %s state=%s objective=%d operator=%s", evt.Type, evt.State, evt.Objective, evt.Operator)
		if evt.Type == "done" {
			log.Printf("status %s after %dms", evt.Status, evt.ElapsedMs)
			return
		}
	}
}
