package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/tutor/internal/knowledge"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/store"
	"github.com/pavelanni/tutor/internal/tutor"
)

// openOptionalStore opens the database when a path is given.
func openOptionalStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	mode := model.Mode(strings.ToLower(v.GetString("mode")))
	input := strings.TrimSpace(strings.Join(args, " "))

	gw, err := llm.New(ctx, llmConfig(v))
	if err != nil {
		return fmt.Errorf("create model gateway: %w", err)
	}

	db, err := openOptionalStore(v.GetString("db"))
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	kb, err := newKnowledgeBase(db, v.GetStringSlice("knowledge"))
	if err != nil {
		return fmt.Errorf("load knowledge: %w", err)
	}

	var logs tutor.InteractionLog
	if db != nil {
		logs = db
	}
	svc, err := tutor.New(gw, kb, logs)
	if err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	req := tutor.Request{
		SessionID:  "cli",
		Subject:    v.GetString("subject"),
		ClassLevel: v.GetString("class"),
		Input:      input,
	}
	out := cmd.OutOrStdout()

	switch mode {
	case model.ModeAsk:
		_, err = fmt.Fprintln(out, svc.AskDoubt(ctx, req))
	case model.ModeExplain:
		_, err = fmt.Fprintln(out, svc.ExplainTopic(ctx, req, model.ExplanationType(v.GetString("explanation-type"))))
	case model.ModeHomework:
		_, err = fmt.Fprintln(out, svc.HomeworkHelp(ctx, req, model.HelpType(v.GetString("help-type"))))
	case model.ModeQuiz:
		q := svc.GenerateQuiz(ctx, req.SessionID, model.QuizConfig{
			Chapter:      input,
			Subject:      req.Subject,
			ClassLevel:   req.ClassLevel,
			NumQuestions: v.GetInt("num-questions"),
			Difficulty:   model.Difficulty(v.GetString("difficulty")),
			QuestionType: model.QuestionType(v.GetString("question-type")),
		})
		err = writeJSONTo(out, q)
	default:
		return fmt.Errorf("unknown mode %q (want ask, explain, homework or quiz)", mode)
	}
	return err
}

// parseSince accepts RFC 3339 timestamps or plain dates.
func parseSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --since %q: want RFC 3339 or YYYY-MM-DD", s)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	since, err := parseSince(v.GetString("since"))
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportInteractions(since)
	if err != nil {
		return fmt.Errorf("export interactions: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeJSONTo(w, export)
}

func writeJSONTo(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func runTopics(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openOptionalStore(v.GetString("db"))
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	kb, err := newKnowledgeBase(db, v.GetStringSlice("knowledge"))
	if err != nil {
		return fmt.Errorf("load knowledge: %w", err)
	}

	out := cmd.OutOrStdout()
	subject, classLevel := v.GetString("subject"), v.GetString("class")
	if subject == "" || classLevel == "" {
		return printSections(out, kb.Sections())
	}

	topics := kb.SuggestTopics(subject, classLevel, v.GetString("query"), v.GetInt("limit"))
	if len(topics) == 0 {
		fmt.Fprintf(out, "no topics for %s %s\n", subject, classLevel)
		return nil
	}
	for _, t := range topics {
		fmt.Fprintln(out, t)
	}
	return nil
}

func printSections(w io.Writer, sections []knowledge.SectionInfo) error {
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "%-16s %-9s %3d topics\n", s.Subject, s.ClassLevel, s.Topics); err != nil {
			return err
		}
	}
	return nil
}
