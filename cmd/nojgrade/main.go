package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/nojgrade/internal/grade"
	"github.com/pavelanni/nojgrade/internal/gradebook"
	"github.com/pavelanni/nojgrade/internal/handler"
	appI18n "github.com/pavelanni/nojgrade/internal/i18n"
	"github.com/pavelanni/nojgrade/internal/model"
	"github.com/pavelanni/nojgrade/internal/report"
	"github.com/pavelanni/nojgrade/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nojgrade",
		Short:        "Multi-deadline grading for Normal-OJ courses",
		SilenceUsage: true,
	}
	root.AddCommand(gradeCmd(), importCmd(), submissionsCmd(), serveCmd())
	return root
}

func addCommonFlags(f *pflag.FlagSet) {
	f.String("db", "nojgrade.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addGradeFlags(f *pflag.FlagSet) {
	f.String("tz", "", "Time zone for deadlines without an offset (default: local)")
	f.Int("workers", 1, "Number of goroutines grading students in parallel")
	f.StringP("lang", "l", "en", "Table header language (en, zh-TW)")
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade submissions against a multi-deadline schedule",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringSliceP("pid", "p", nil, "Problem ids to grade (repeatable)")
	f.String("homework", "", "Grade a stored homework, <course>/<name>; overrides --pid")
	f.StringArrayP("deadline", "d", nil, `Deadline checkpoint "<date>,<ratio>" (repeatable)`)
	f.StringSliceP("weight", "w", nil, "Problem weight <pid>=<percent> (repeatable; default: even split)")
	f.StringP("exclude", "e", "", "Students to leave out, comma-separated or @file")
	f.StringP("output", "o", "output.csv", "Output file path (- for stdout)")
	f.StringP("format", "f", report.FormatCSV, "Output format (csv, json, table)")
	addGradeFlags(f)
	addCommonFlags(f)
	return cmd
}

func submissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List stored submissions as JSON",
		RunE:  runSubmissions,
	}
	f := cmd.Flags()
	f.StringSliceP("pid", "p", nil, "Problem ids (required, repeatable)")
	f.String("before", "", "Only submissions made before this time")
	f.String("after", "", "Only submissions made after this time")
	f.StringP("username", "u", "", "Only submissions of this user")
	f.StringSliceP("field", "f", nil, "Fields to include (repeatable; default: all)")
	f.String("tz", "", "Time zone for times without an offset (default: local)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(f)
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve grade reports over HTTP",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /grades)")
	addGradeFlags(f)
	addCommonFlags(f)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("NOJGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("nojgrade")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/nojgrade")
	v.AddConfigPath("/etc/nojgrade")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// gradeConfig collects the grading parameters bound to v.
func gradeConfig(v *viper.Viper) (model.GradeConfig, error) {
	loc, err := location(v.GetString("tz"))
	if err != nil {
		return model.GradeConfig{}, err
	}
	pids, err := parseIDs(v.GetStringSlice("pid"))
	if err != nil {
		return model.GradeConfig{}, err
	}
	return model.GradeConfig{
		ProblemIDs: pids,
		Homework:   v.GetString("homework"),
		Deadlines:  v.GetStringSlice("deadline"),
		Weights:    v.GetStringSlice("weight"),
		Exclude:    v.GetString("exclude"),
		Location:   loc,
		Workers:    v.GetInt("workers"),
	}, nil
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", tz, err)
	}
	return loc, nil
}

func parseIDs(values []string) ([]int, error) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid problem id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	format := v.GetString("format")
	if !report.IsValidFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	cfg, err := gradeConfig(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	rep, err := gradebook.Report(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("grade: %w", err)
	}

	opts := report.Options{Format: format}
	if format == report.FormatTable {
		if opts.Names, err = db.ProblemNames(rep.Columns); err != nil {
			return fmt.Errorf("load problem names: %w", err)
		}
	}
	out := v.GetString("output")
	if err := report.WriteFile(ctx, out, rep, opts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("graded", "students", len(rep.Rows), "problems", rep.Columns, "output", out)
	return nil
}

func runSubmissions(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	pids, err := parseIDs(v.GetStringSlice("pid"))
	if err != nil {
		return err
	}
	loc, err := location(v.GetString("tz"))
	if err != nil {
		return err
	}
	filter := store.SubmissionFilter{ProblemIDs: pids, Username: v.GetString("username")}
	if s := v.GetString("before"); s != "" {
		if filter.Before, err = grade.ParseTime(s, loc); err != nil {
			return fmt.Errorf("--before: %w", err)
		}
	}
	if s := v.GetString("after"); s != "" {
		if filter.After, err = grade.ParseTime(s, loc); err != nil {
			return fmt.Errorf("--after: %w", err)
		}
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	recs, err := db.ListSubmissions(filter)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	items, err := model.ProjectSubmissions(recs, v.GetStringSlice("field"))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	outPath := v.GetString("output")
	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(outPath, data, 0o644)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	loc, err := location(v.GetString("tz"))
	if err != nil {
		return err
	}
	defaults := model.GradeConfig{Location: loc, Workers: v.GetInt("workers")}
	h, err := handler.New(db, defaults)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)

	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"languages", appI18n.Languages(),
		"tz", loc.String(),
		"workers", defaults.Workers,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}
