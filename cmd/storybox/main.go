// Package main provides the storybox entry point.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/storybox/internal/app/session"
	"github.com/osa030/storybox/internal/domain/story"
	"github.com/osa030/storybox/internal/infra/config"
	"github.com/osa030/storybox/internal/infra/library"
	"github.com/osa030/storybox/internal/infra/logger"
	"github.com/osa030/storybox/internal/ui/viewer"
)

var (
	app        = kingpin.New("storybox", "Terminal stories presenter")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	viewCmd = app.Command("view", "View a story set (default)").Default()
	viewSet = viewCmd.Arg("set", "Set ID or title (default: newest)").String()

	importCmd = app.Command("import", "Import inline sets from the config into the library")

	listCmd = app.Command("list-sets", "List story sets in the library")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.Log.Level != "" && !*verbose {
		loggerConfig.Level = cfg.Log.Level
		_ = logger.Init(loggerConfig)
	}

	lib, err := openLibrary(cfg)
	if err != nil {
		zlog.Fatal().Msgf("Failed to open library: %v", err)
	}
	defer lib.Close()

	switch command {
	case importCmd.FullCommand():
		err = runImport(cfg, lib)
	case listCmd.FullCommand():
		err = runList(lib)
	default:
		err = runView(cfg, lib, *viewSet)
	}
	if err != nil {
		zlog.Error().Msgf("%v", err)
		os.Exit(1)
	}
}

// loadConfig loads the config from --config, the default XDG location, or
// falls back to built-in defaults when no file exists.
func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		candidate, err := xdg.SearchConfigFile("storybox/storybox.yaml")
		if err != nil {
			return config.Default()
		}
		path = candidate
	}

	zlog.Debug().Msgf("Loading config from %s", path)
	return config.Load(path)
}

func openLibrary(cfg *config.Config) (*library.Library, error) {
	path := cfg.Library.Path
	if path == "" {
		resolved, err := xdg.DataFile("storybox/library.db")
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return library.Open(path)
}

// runImport saves each inline config set into the library.
func runImport(cfg *config.Config, lib *library.Library) error {
	if len(cfg.Sets) == 0 {
		fmt.Println("No sets in config, nothing to import")
		return nil
	}

	for _, sc := range cfg.Sets {
		set := buildSet(sc)
		if err := lib.SaveSet(set); err != nil {
			return fmt.Errorf("import %q: %w", sc.Title, err)
		}
		fmt.Printf("Imported %q (%d stories) as %s\n", set.Title, set.Len(), set.ID)
	}
	return nil
}

func runList(lib *library.Library) error {
	sets, err := lib.ListSets()
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Println("Library is empty")
		return nil
	}

	for _, s := range sets {
		fmt.Printf("%s  %-24s %-16s %3d stories  %s\n",
			s.ID, s.Title, s.Author, s.StoryCount, s.CreatedAt.Format(time.DateOnly))
	}
	return nil
}

// runView resolves a set and presents it. Inline config sets win over
// library sets so their playback overrides apply.
func runView(cfg *config.Config, lib *library.Library, target string) error {
	set, overrides, err := resolveSet(cfg, lib, target)
	if err != nil {
		return err
	}

	mgr := session.NewManager(cfg.Playback)
	defer mgr.CloseAll()

	s, err := mgr.Open(set, overrides)
	if err != nil {
		return err
	}

	program := tea.NewProgram(viewer.New(s), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func resolveSet(cfg *config.Config, lib *library.Library, target string) (*story.Set, config.SetOverrides, error) {
	var none config.SetOverrides

	for _, sc := range cfg.Sets {
		if target == "" || sc.Title == target {
			ov, err := config.DecodeOverrides(sc.Overrides)
			if err != nil {
				return nil, none, err
			}
			return buildSet(sc), ov, nil
		}
	}

	if target != "" {
		if set, err := lib.GetSet(target); err == nil {
			return set, none, nil
		}
		summaries, err := lib.ListSets()
		if err != nil {
			return nil, none, err
		}
		for _, sum := range summaries {
			if sum.Title == target {
				set, err := lib.GetSet(sum.ID)
				return set, none, err
			}
		}
		return nil, none, fmt.Errorf("no set named %q", target)
	}

	summaries, err := lib.ListSets()
	if err != nil {
		return nil, none, err
	}
	if len(summaries) == 0 {
		return nil, none, fmt.Errorf("library is empty and config has no sets")
	}
	set, err := lib.GetSet(summaries[0].ID)
	return set, none, err
}

func buildSet(sc config.SetConfig) *story.Set {
	set := &story.Set{
		ID:        uuid.New().String(),
		Title:     sc.Title,
		Author:    sc.Author,
		CreatedAt: time.Now(),
	}
	for _, st := range sc.Stories {
		set.Stories = append(set.Stories, story.Story{
			ID:       uuid.New().String(),
			Kind:     story.Kind(st.Kind),
			MediaURL: st.MediaURL,
			Caption:  st.Caption,
			PostedAt: time.Now(),
		})
	}
	return set
}
