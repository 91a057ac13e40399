package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	datadog "github.com/rocicorp/datadog-util"
	ddhttp "github.com/rocicorp/datadog-util/instrumentation/http"
	ddsql "github.com/rocicorp/datadog-util/instrumentation/sql"
)

func main() {
	ctx := context.Background()
	agent, err := datadog.New(ctx, datadog.Options{
		APIKey:         os.Getenv("DD_API_KEY"),
		Tags:           []string{"service:example", "env:dev"},
		ReportInterval: 30 * time.Second,
		RuntimeStats:   true,
		Tracing:        true,
		ServiceName:    "example",
	})
	if err != nil {
		log.Fatalf("failed to initialize datadog agent: %v", err)
	}
	defer agent.Shutdown(ctx)

	db, err := ddsql.Open("sqlite3", "file:example.db?cache=shared&mode=memory")
	if err != nil {
		log.Fatalf("failed to open instrumented db connection: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		log.Fatalf("failed to create table: %v", err)
	}

	client := &http.Client{
		Transport: ddhttp.NewTransport(nil, agent.Metrics()),
		Timeout:   5 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", helloHandler)
	mux.HandleFunc("/buy", buyHandler(agent))
	mux.HandleFunc("/db", dbHandler(db))
	mux.HandleFunc("/error", erroringHandler)
	mux.HandleFunc("/outbound", outboundHandler(client))

	handler := ddhttp.Middleware(agent.Metrics())(mux)
	handler = ddhttp.NewMiddleware(handler, "http-server")

	log.Printf("Starting example server on :8080, reporting as 'example' every 30s")
	log.Println("Set DD_API_KEY to deliver series to Datadog.")
	log.Println("Test endpoint: http://localhost:8080/")
	log.Println("Business metric endpoint: http://localhost:8080/buy")
	log.Println("DB test endpoint: http://localhost:8080/db")
	log.Println("Error test endpoint: http://localhost:8080/error")
	log.Println("Outbound call endpoint: http://localhost:8080/outbound")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		log.Fatalf("could not start server: %v", err)
	}
}

func helloHandler(w http.ResponseWriter, r *http.Request) {
	time.Sleep(50 * time.Millisecond)
	fmt.Fprintln(w, "Hello from the example server!")
}

func buyHandler(agent *datadog.Agent) http.HandlerFunc {
	var sold int64
	return func(w http.ResponseWriter, r *http.Request) {
		agent.Gauge("items_sold").Set(float64(atomic.AddInt64(&sold, 1)))
		agent.State("shop_status", false).Set("open")
		fmt.Fprintln(w, "Thanks for your purchase!")
	}
}

func erroringHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintln(w, "This endpoint always returns an error.")
}

func dbHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		row := db.QueryRowContext(ctx, "SELECT 'John Doe' as name")
		var name string
		if err := row.Scan(&name); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "User name from DB: %s\n", name)
	}
}

func outboundHandler(client *http.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := client.Get("http://localhost:8080/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		resp.Body.Close()
		fmt.Fprintf(w, "Outbound call answered %s\n", resp.Status)
	}
}
