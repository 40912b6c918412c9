package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/polyglotd/polyglotd/pkg/health"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	Version   = "dev"
)

type historyRecord struct {
	ID             uint      `json:"id"`
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	Timestamp      time.Time `json:"timestamp"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "polyglot",
		Short: "Polyglot - client for the Polyglotd translation API",
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Polyglotd server URL")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", os.Getenv("POLYGLOTD_API_KEY"), "API key")

	rootCmd.AddCommand(
		statusCmd(),
		translateCmd(),
		detectCmd(),
		historyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := health.Check(serverURL)

			fmt.Printf("Server:      %s\n", serverURL)
			fmt.Printf("Reachable:   %v\n", status.ServerReachable)
			if status.Version != "" {
				fmt.Printf("Version:     %s\n", status.Version)
			}
			if status.Environment != "" {
				fmt.Printf("Environment: %s\n", status.Environment)
			}
			for _, issue := range status.Issues {
				fmt.Printf("Issue:       %s\n", issue)
			}
			if !status.Healthy {
				return fmt.Errorf("server is not healthy")
			}
			return nil
		},
	}
}

func translateCmd() *cobra.Command {
	var sourceLang, targetLang string

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate one or more texts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"text":        args,
				"target_lang": targetLang,
			}
			if sourceLang != "" {
				payload["source_lang"] = sourceLang
			}

			var resp struct {
				TranslatedText []string `json:"translated_text"`
				SourceLang     string   `json:"source_lang"`
				TargetLang     string   `json:"target_lang"`
			}
			if err := postJSON("/api/v1/translate", payload, &resp); err != nil {
				return err
			}

			fmt.Printf("%s -> %s\n", resp.SourceLang, resp.TargetLang)
			for i, translated := range resp.TranslatedText {
				fmt.Printf("%s\t%s\n", args[i], translated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceLang, "source", "", "Source language (auto-detected if empty)")
	cmd.Flags().StringVar(&targetLang, "target", "", "Target language")
	cmd.MarkFlagRequired("target")
	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [text]",
		Short: "Detect the language of a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				DetectedLang string  `json:"detected_lang"`
				Confidence   float64 `json:"confidence"`
			}
			if err := postJSON("/api/v1/detect", map[string]string{"text": args[0]}, &resp); err != nil {
				return err
			}
			fmt.Printf("%s (confidence %.4f)\n", resp.DetectedLang, resp.Confidence)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your recent translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := fetchHistory(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tPAIR\tSOURCE\tTRANSLATED")
			for _, r := range records {
				pair := fmt.Sprintf("%s->%s", r.SourceLang, r.TargetLang)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					r.Timestamp.Format(time.RFC3339), pair, clip(r.SourceText), clip(r.TranslatedText))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to fetch (1-1000)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

func fetchHistory(limit int) ([]historyRecord, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/history?limit=%d", serverURL, limit), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var records []historyRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func postJSON(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func clip(s string) string {
	const max = 40
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
