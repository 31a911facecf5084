package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/rhythm/internal/backup"
	"github.com/julianstephens/rhythm/internal/config"
	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
	"github.com/julianstephens/rhythm/internal/planner"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/storage"
	"github.com/julianstephens/rhythm/internal/storage/postgres"
	remotesync "github.com/julianstephens/rhythm/internal/sync"
	"github.com/julianstephens/rhythm/internal/utils"
)

type Context struct {
	Store      storage.Provider
	Config     config.Config
	Aggregator *scheduler.Aggregator
	Planner    *planner.Service

	// Out receives command output. Nil means stdout.
	Out io.Writer
	// Ctx is cancelled on interrupt. Nil means context.Background.
	Ctx context.Context
}

// NewContext wires the planner over store using the given suppliers.
func NewContext(store storage.Provider, cfg config.Config, suppliers scheduler.Suppliers) *Context {
	agg := scheduler.NewAggregator(scheduler.New(), suppliers)
	return &Context{
		Store:      store,
		Config:     cfg,
		Aggregator: agg,
		Planner:    planner.New(store, agg),
	}
}

func (c *Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Stdout(), args...)
}

// PerformAutomaticBackup creates a backup and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Preferences returns the stored preferences with defaults applied.
func (c *Context) Preferences() (models.Preferences, error) {
	prefs, err := c.Store.GetPreferences()
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	models.ApplyDefaultPreferences(&prefs)
	return prefs, nil
}

// ResolveDate turns "today" or YYYY-MM-DD into a date in the user's timezone.
func (c *Context) ResolveDate(s string) (string, error) {
	prefs, err := c.Preferences()
	if err != nil {
		return "", err
	}
	date, err := utils.ResolveDate(s, prefs.Timezone)
	if err != nil {
		return "", fmt.Errorf("invalid date, use YYYY-MM-DD or 'today': %w", err)
	}
	return date, nil
}

// ResolveWeek returns the Sunday starting the week that contains s.
func (c *Context) ResolveWeek(s string) (string, error) {
	date, err := c.ResolveDate(s)
	if err != nil {
		return "", err
	}
	d, err := utils.ParseDate(date)
	if err != nil {
		return "", err
	}
	return utils.WeekStart(d).Format(constants.DateFormat), nil
}

// ResolveBlockID finds the block in day whose id is ref or starts with it.
func ResolveBlockID(day models.DailyTimeline, ref string) (string, error) {
	if _, ok := day.FindBlock(ref); ok {
		return ref, nil
	}
	var matches []string
	for _, b := range day.PlacedBlocks() {
		if strings.HasPrefix(b.ID, ref) {
			matches = append(matches, b.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no block %q on %s", apperrors.ErrNotFound, ref, day.Date)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("block id %q is ambiguous on %s (%d matches)", ref, day.Date, len(matches))
	}
}

// Confirm asks a yes/no question on the terminal.
func Confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

// PrintJSON writes v as indented JSON.
func (c *Context) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(c.Stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// OpenSyncer connects to remote persistence when it is configured. Without
// it the returned Syncer reports every push as unavailable.
func (c *Context) OpenSyncer(ctx context.Context) (*remotesync.Syncer, func(), error) {
	if !c.Config.RemoteEnabled() {
		return remotesync.New(c.Store, nil), func() {}, nil
	}
	remote := postgres.New(c.Config.RemoteDSN)
	if err := remote.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to remote store: %w", err)
	}
	closer := func() {
		if err := remote.Close(); err != nil {
			logger.Warn("Failed to close remote store", "error", err)
		}
	}
	return remotesync.New(c.Store, remote), closer, nil
}

// OpenOptimizer returns the advisory client and its guidance cache. The
// client still produces local suggestions when no API key is configured.
func (c *Context) OpenOptimizer() (*optimizer.Client, *optimizer.Cache, error) {
	cache, err := optimizer.OpenCache(c.Config.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open advisory cache: %w", err)
	}
	var advisor optimizer.Advisor
	if c.Config.AdvisoryEnabled() {
		advisor = optimizer.NewOpenAIAdvisor(c.Config.AdvisoryKey, c.Config.AdvisoryModel)
	}
	return optimizer.NewClient(advisor, cache), cache, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses a comma-separated list of day names or numbers
// (0=Sunday). An empty string yields no days.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	days := []time.Weekday{}
	if strings.TrimSpace(s) == "" {
		return days, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := weekdayNames[part]; ok {
			days = append(days, wd)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
