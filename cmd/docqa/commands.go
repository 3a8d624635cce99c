package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/docqa/internal/config"
	"github.com/kalambet/docqa/internal/loader"
	"github.com/kalambet/docqa/internal/reconcile"
	"github.com/kalambet/docqa/internal/retrieval"
	"github.com/kalambet/docqa/internal/storage"
)

func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload and index a document",
	Long: `Upload and index a .pdf or .txt document.

Examples:
  docqa upload ./handbook.pdf
  docqa upload ./notes.txt --session 7f0c...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !loader.Supported(path) {
			return fmt.Errorf("unsupported file type %q; supported: %s", filepath.Ext(path), strings.Join(loader.Extensions, ", "))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		session, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.upload(cmd.Context(), filepath.Base(path), data, session)
		if err != nil {
			return err
		}

		var result struct {
			Message      string `json:"message"`
			FileID       int64  `json:"file_id"`
			Chunks       int    `json:"chunks"`
			Summary      string `json:"summary"`
			SummaryError string `json:"summary_error"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		out := cmd.OutOrStdout()
		printField(out, "File ID", strconv.FormatInt(result.FileID, 10))
		printField(out, "Chunks", strconv.Itoa(result.Chunks))
		if result.Summary != "" {
			fmt.Fprintf(out, "\n%s\n", result.Summary)
		}
		if result.SummaryError != "" {
			printWarning("summary unavailable: %s", result.SummaryError)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("session", "", "attach the document to this session")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the uploaded documents",
	Long: `Ask a question answered from the uploaded documents.

Pass --session to continue a conversation; the session id of a new
conversation is printed after the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		model, _ := cmd.Flags().GetString("model")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/chat", map[string]string{
			"question":   strings.Join(args, " "),
			"session_id": session,
			"model":      model,
		})
		if err != nil {
			return err
		}

		var result struct {
			Answer    string `json:"answer"`
			SessionID string `json:"session_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
		if session == "" {
			printSuccess("session %s", result.SessionID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "session id to continue")
	askCmd.Flags().String("model", "", "chat model override")
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List or delete documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/list-docs"
		if session != "" {
			path += "?" + url.Values{"session_id": {session}}.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var docs []struct {
			ID              int64     `json:"id"`
			Filename        string    `json:"filename"`
			UploadTimestamp time.Time `json:"upload_timestamp"`
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents.")
			return nil
		}
		for _, d := range docs {
			fmt.Fprintf(out, "%-6d %-40s %s\n", d.ID, d.Filename, d.UploadTimestamp.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDocumentID(args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/delete-doc", map[string]int64{"file_id": id})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("%s", result["message"])
		return nil
	},
}

func init() {
	docsListCmd.Flags().String("session", "", "only documents attached to this session")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

// --- per-document tasks ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Summary string `json:"summary"`
		}
		if err := postDocument(cmd, "/summarize", args[0], &result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		return nil
	},
}

var challengeCmd = &cobra.Command{
	Use:   "challenge <id>",
	Short: "Generate comprehension questions about a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Questions []string `json:"questions"`
		}
		if err := postDocument(cmd, "/challenge-me", args[0], &result); err != nil {
			return err
		}
		printNumbered(cmd.OutOrStdout(), result.Questions)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <id>",
	Short: "Rebuild a document's index entries from its stored text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Message string `json:"message"`
			Chunks  int    `json:"chunks"`
		}
		if err := postDocument(cmd, "/reindex-doc", args[0], &result); err != nil {
			return err
		}
		printSuccess("%s (%d chunks)", result.Message, result.Chunks)
		return nil
	},
}

// postDocument posts {file_id} to path and decodes the response into v.
func postDocument(cmd *cobra.Command, path, rawID string, v any) error {
	id, err := parseDocumentID(rawID)
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.post(cmd.Context(), path, map[string]int64{"file_id": id})
	if err != nil {
		return err
	}
	return decodeJSON(resp, v)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <id>",
	Short: "Evaluate your answer to a question about a document",
	Long: `Evaluate your answer to a question about a document.

Example:
  docqa evaluate 3 --question "What is the refund window?" --answer "30 days"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDocumentID(args[0])
		if err != nil {
			return err
		}
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
			return fmt.Errorf("--question and --answer are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/evaluate-response", map[string]any{
			"file_id":     id,
			"question":    question,
			"user_answer": answer,
		})
		if err != nil {
			return err
		}

		var result struct {
			Feedback string `json:"feedback"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Feedback)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("question", "", "the question that was asked")
	evaluateCmd.Flags().String("answer", "", "your answer")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "Show the turns of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/history?"+url.Values{"session_id": {args[0]}}.Encode())
		if err != nil {
			return err
		}

		var turns []struct {
			Question  string    `json:"question"`
			Answer    string    `json:"answer"`
			Model     string    `json:"model"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := decodeJSON(resp, &turns); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(turns) == 0 {
			fmt.Fprintln(out, "No turns in this session.")
			return nil
		}
		for i, t := range turns {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "Q:"), t.Question)
			fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "A:"), t.Answer)
		}
		return nil
	},
}

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Finish pending document deletions",
	Long: `Run queued purge jobs left behind by partially failed deletions,
then exit. A running server already processes them in the background
under its document locks, so run this only while the server is stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		vectors := retrieval.NewSQLiteStore(store.DB(), cfg.Engine.EmbedDim)
		n, err := reconcile.NewWorker(store, vectors, cfg.Reconcile.Interval).Drain(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Processed %d job(s)", n)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file.\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
