// Command advocai is the operator CLI. It can drive a running API (start,
// resume, status) or execute the pipeline in-process without Redis
// (run-local, judge).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"advocai/internal/config"
	"advocai/internal/judge"
	"advocai/internal/logging"
	"advocai/internal/schemas"
	"advocai/internal/worker"
)

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")
	token := envOr("API_TOKEN", "")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "start":
		fs := flag.NewFlagSet("start", flag.ExitOnError)
		baseFlag := fs.String("base", base, "API base URL")
		tokenFlag := fs.String("token", token, "API token")
		denial := fs.String("denial", "", "Path to the denial letter (required)")
		policy := fs.String("policy", "", "Path to the policy document (optional)")
		fs.Parse(os.Args[2:])
		cmdStart(*baseFlag, *tokenFlag, *denial, *policy)
	case "resume":
		fs := flag.NewFlagSet("resume", flag.ExitOnError)
		baseFlag := fs.String("base", base, "API base URL")
		tokenFlag := fs.String("token", token, "API token")
		fs.Parse(os.Args[2:])
		cmdResume(*baseFlag, *tokenFlag, fs.Arg(0))
	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		baseFlag := fs.String("base", base, "API base URL")
		tokenFlag := fs.String("token", token, "API token")
		fs.Parse(os.Args[2:])
		cmdStatus(*baseFlag, *tokenFlag, fs.Arg(0))
	case "run-local":
		fs := flag.NewFlagSet("run-local", flag.ExitOnError)
		denial := fs.String("denial", "", "Path to the denial letter (required)")
		policy := fs.String("policy", "", "Path to the policy document (optional)")
		fs.Parse(os.Args[2:])
		cmdRunLocal(*denial, *policy)
	case "judge":
		fs := flag.NewFlagSet("judge", flag.ExitOnError)
		dir := fs.String("session-dir", "", "Session directory with stage outputs (required)")
		fs.Parse(os.Args[2:])
		cmdJudge(*dir)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: advocai <command> [flags]

commands:
  start      -denial <file> [-policy <file>]   create a case and enqueue a run
  resume     <session-id>                      resume a failed case
  status     <session-id>                      print case status
  run-local  -denial <file> [-policy <file>]   run the pipeline in-process
  judge      -session-dir <dir>                re-score an existing session`)
}

func cmdStart(base, token, denial, policy string) {
	if denial == "" {
		fatalf("start: -denial is required")
	}
	httpc := &http.Client{Timeout: 30 * time.Second}

	var created schemas.CreateCaseResponse
	if err := postMultipart(httpc, base+"/cases", token, denial, policy, &created); err != nil {
		fatalf("create case: %v", err)
	}
	fmt.Printf("Created case: session_id=%s\n", created.SessionID)

	var run schemas.RunResponse
	if err := postJSON(httpc, fmt.Sprintf("%s/cases/%s/run", base, created.SessionID), token, nil, &run); err != nil {
		fatalf("enqueue run: %v", err)
	}
	fmt.Printf("Pipeline %s for session %s\n", run.Status, run.SessionID)
}

func cmdResume(base, token, sessionID string) {
	if sessionID == "" {
		fatalf("resume: session id is required")
	}
	httpc := &http.Client{Timeout: 30 * time.Second}

	var run schemas.RunResponse
	if err := postJSON(httpc, fmt.Sprintf("%s/cases/%s/resume", base, sessionID), token, nil, &run); err != nil {
		fatalf("resume: %v", err)
	}
	fmt.Printf("Pipeline %s for session %s\n", run.Status, run.SessionID)
}

func cmdStatus(base, token, sessionID string) {
	if sessionID == "" {
		fatalf("status: session id is required")
	}
	httpc := &http.Client{Timeout: 30 * time.Second}

	var status schemas.StatusResponse
	if err := getJSON(httpc, fmt.Sprintf("%s/cases/%s/status", base, sessionID), token, &status); err != nil {
		fatalf("status: %v", err)
	}
	b, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(b))
}

// cmdRunLocal executes the whole pipeline in this process, using the file
// store for checkpoints. Useful for development and one-off cases.
func cmdRunLocal(denial, policy string) {
	if denial == "" {
		fatalf("run-local: -denial is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	sessions := worker.BuildSessions(cfg, logger)
	pipeline, err := worker.BuildPipeline(ctx, cfg, sessions, logger)
	if err != nil {
		fatalf("wiring: %v", err)
	}
	sessionID, err := sessions.StartSession(ctx, map[string]any{"source": "cli"})
	if err != nil {
		fatalf("start session: %v", err)
	}
	fmt.Printf("Session: %s\n", sessionID)

	card, err := pipeline.Run(ctx, sessionID, denial, policy)
	if err != nil {
		fatalf("pipeline: %v (resume with: advocai resume %s)", err, sessionID)
	}

	fmt.Printf("Status: %s  Overall: %d\n", card.Status, card.OverallScore)
	fmt.Printf("Artifacts: %s\n", filepath.Join(cfg.SessionsDir, sessionID))
}

// cmdJudge re-evaluates an already-populated session directory.
func cmdJudge(sessionDir string) {
	if sessionDir == "" {
		fatalf("judge: -session-dir is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	card, err := judge.New(cfg.Judge, logger).Run(sessionDir)
	if err != nil {
		fatalf("judge: %v", err)
	}
	b, _ := json.MarshalIndent(card, "", "  ")
	fmt.Println(string(b))
}

// --- helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func postMultipart(c *http.Client, url, bearer, denialPath, policyPath string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := attachFile(mw, "denial", denialPath); err != nil {
		return err
	}
	if policyPath != "" {
		if err := attachFile(mw, "policy", policyPath); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return doExpectOK(c, req, out)
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fw, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

func postJSON(c *http.Client, url, bearer string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return doExpectOK(c, req, out)
}

func getJSON(c *http.Client, url, bearer string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return doExpectOK(c, req, out)
}

func doExpectOK(c *http.Client, req *http.Request, out any) error {
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s -> %d: %s", req.Method, req.URL, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
