package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homescout/internal/api"
	"homescout/internal/auth"
	"homescout/internal/calendar"
	"homescout/internal/config"
	"homescout/internal/export"
	"homescout/internal/metrics"
	"homescout/internal/model"
	"homescout/internal/session"
	"homescout/internal/token"
)

const usage = `usage: homescout <command> [args]

commands:
  login <email>                     sign in (password read from HOMESCOUT_PASSWORD)
  register <name> <email>           create an account and sign in
  logout                            sign out and revoke the refresh credential
  properties [sale|rent] [flags]    list listings, filtered locally
  property <id>                     show one listing
  booked-dates <id> [YYYY-MM]       render the availability calendar
  book <id> <start> <end>           open a checkout session for the stay
  bookings                          list your bookings
  favorites [add|remove <id>]       manage saved listings
  export <path.xlsx>                export your bookings as a workbook
  chat <id> <message>               ask the chatbot about a listing
  daemon                            run the background refresher and monitoring
`

type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     *session.Store
	bus       *session.Bus
	client    *api.Client
	coord     *auth.Coordinator
	refresher *auth.ProactiveRefresher
	rdb       *redis.Client
}

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("HOMESCOUT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	a := newApp(cfg, logger)
	defer a.refresher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func newApp(cfg *config.Config, logger zerolog.Logger) *app {
	store := session.NewStore(cfg.Session.StateDir)
	bus := session.NewBus()
	cache := token.NewCache()

	client := api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), store, bus, &logger)
	client.SetRateLimit(cfg.API.RatePerSecond, cfg.API.RateBurst)

	var rdb *redis.Client
	if cfg.API.CacheEnabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	coord := auth.NewCoordinator(store, cache, client, bus, api.AuthEndpoints, &logger)
	coord.SetExpiryBuffer(cfg.AuthExpiryBuffer())
	client.SetCoordinator(coord)

	refresher := auth.NewProactiveRefresher(auth.RefresherConfig{
		CheckInterval:  cfg.AuthCheckInterval(),
		RenewThreshold: cfg.AuthRenewThreshold(),
		RequestTimeout: cfg.APITimeout(),
	}, coord, store, cache, &logger)
	refresher.Bind(bus)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		bus:       bus,
		client:    client,
		coord:     coord,
		refresher: refresher,
		rdb:       rdb,
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		return a.client.Logout(ctx)
	case "properties":
		return a.cmdProperties(ctx, args)
	case "property":
		return a.cmdProperty(ctx, args)
	case "booked-dates":
		return a.cmdBookedDates(ctx, args)
	case "book":
		return a.cmdBook(ctx, args)
	case "bookings":
		return a.cmdBookings(ctx)
	case "favorites":
		return a.cmdFavorites(ctx, args)
	case "export":
		return a.cmdExport(ctx, args)
	case "chat":
		return a.cmdChat(ctx, args)
	case "daemon":
		return a.cmdDaemon(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: login <email>")
	}
	password := os.Getenv("HOMESCOUT_PASSWORD")
	if password == "" {
		return fmt.Errorf("set HOMESCOUT_PASSWORD")
	}
	user, err := a.client.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: register <name> <email>")
	}
	password := os.Getenv("HOMESCOUT_PASSWORD")
	if password == "" {
		return fmt.Errorf("set HOMESCOUT_PASSWORD")
	}
	user, err := a.client.Register(ctx, args[0], args[1], password)
	if err != nil {
		return err
	}
	fmt.Printf("welcome, %s\n", user.Name)
	return nil
}

func (a *app) cmdProperties(ctx context.Context, args []string) error {
	kind := "sale"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		kind = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("properties", flag.ContinueOnError)
	city := fs.String("city", "", "filter by city")
	minPrice := fs.Float64("min-price", 0, "minimum price")
	maxPrice := fs.Float64("max-price", 0, "maximum price")
	bedrooms := fs.Int("bedrooms", 0, "minimum bedrooms")
	query := fs.String("q", "", "title/description search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []model.Property
	var err error
	switch kind {
	case "sale":
		list, err = a.client.ListForSale(ctx)
	case "rent":
		list, err = a.client.ListForRent(ctx)
	default:
		return fmt.Errorf("unknown listing kind %q", kind)
	}
	if err != nil {
		return err
	}

	list = model.FilterProperties(list, model.Filter{
		City:        *city,
		MinPrice:    *minPrice,
		MaxPrice:    *maxPrice,
		MinBedrooms: *bedrooms,
		Query:       *query,
	})

	for _, p := range list {
		price := fmt.Sprintf("%.0f", p.Price)
		if p.Kind == model.ListingForRent {
			price = fmt.Sprintf("%.0f/night", p.PricePerNight)
		}
		fmt.Printf("%-12s %-30s %-15s %s\n", p.ID, p.Title, p.City, price)
	}
	fmt.Printf("%d listings\n", len(list))
	return nil
}

func (a *app) cmdProperty(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: property <id>")
	}
	p, err := a.client.GetProperty(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n%s, %s\n", p.Title, p.Kind, p.Address, p.City)
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	if p.Kind == model.ListingForRent {
		fmt.Printf("%.2f per night\n", p.PricePerNight)
	} else {
		fmt.Printf("%.2f\n", p.Price)
	}
	return nil
}

func (a *app) cmdBookedDates(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: booked-dates <id> [YYYY-MM]")
	}

	now := time.Now().UTC()
	month := calendar.YearMonth{Year: now.Year(), Month: now.Month()}
	if len(args) > 1 {
		parsed, err := time.Parse("2006-01", args[1])
		if err != nil {
			return fmt.Errorf("parse month: %w", err)
		}
		month = calendar.YearMonth{Year: parsed.Year(), Month: parsed.Month()}
	}

	booked, err := a.client.BookedDates(ctx, args[0])
	if err != nil {
		return err
	}

	renderMonth(os.Stdout, month, booked, now)
	return nil
}

// renderMonth prints a Sunday-first calendar, marking occupied days with
// brackets and past days with dots.
func renderMonth(out *os.File, month calendar.YearMonth, booked []calendar.DateRange, today time.Time) {
	fmt.Fprintf(out, "%s %d\n", month.Month, month.Year)
	fmt.Fprintln(out, " Su  Mo  Tu  We  Th  Fr  Sa")

	grid := calendar.Grid(month, booked, today, calendar.Selection{})
	for i, day := range grid {
		switch {
		case day.Padding():
			fmt.Fprint(out, "    ")
		case day.Booked:
			fmt.Fprintf(out, "[%2d]", day.Date.Day())
		case day.Past:
			fmt.Fprintf(out, " %2d.", day.Date.Day())
		default:
			fmt.Fprintf(out, " %2d ", day.Date.Day())
		}
		if (i+1)%7 == 0 {
			fmt.Fprintln(out)
		}
	}
	if len(grid)%7 != 0 {
		fmt.Fprintln(out)
	}
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: book <id> <start> <end>")
	}
	start, err := calendar.ParseDay(args[1])
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	end, err := calendar.ParseDay(args[2])
	if err != nil {
		return fmt.Errorf("parse end: %w", err)
	}

	booked, err := a.client.BookedDates(ctx, args[0])
	if err != nil {
		return err
	}
	if err := validateStay(start, end, booked, time.Now().UTC()); err != nil {
		return err
	}

	sess, err := a.client.CreateCheckoutSession(ctx, args[0], start, end)
	if err != nil {
		return err
	}
	fmt.Printf("%d nights, complete payment at:\n%s\n", calendar.Nights(start, end), sess.URL)
	return nil
}

// validateStay applies the same per-day rules the calendar grid
// enforces: both boundary days must be free and not in the past, and no
// night in between may cross a booked range.
func validateStay(start, end time.Time, booked []calendar.DateRange, today time.Time) error {
	if calendar.Midnight(start).Before(calendar.Midnight(today)) {
		return fmt.Errorf("start %s is in the past", calendar.FormatDay(start))
	}
	if calendar.DateBooked(start, booked) {
		return fmt.Errorf("start %s is already booked", calendar.FormatDay(start))
	}
	if calendar.DateBooked(end, booked) {
		return fmt.Errorf("end %s is already booked", calendar.FormatDay(end))
	}
	if calendar.RangeBooked(start, end, booked) {
		return fmt.Errorf("stay %s to %s overlaps an existing booking",
			calendar.FormatDay(start), calendar.FormatDay(end))
	}
	return nil
}

func (a *app) cmdBookings(ctx context.Context) error {
	bookings, err := a.client.MyBookings(ctx)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		fmt.Printf("%-12s %-30s %s to %s  %d nights  %.2f  %s\n",
			b.ID, b.Property, b.StartDate, b.EndDate, b.Nights, b.Total, b.Status)
	}
	fmt.Printf("%d bookings\n", len(bookings))
	return nil
}

func (a *app) cmdFavorites(ctx context.Context, args []string) error {
	if len(args) == 0 {
		favs, err := a.client.ListFavorites(ctx)
		if err != nil {
			return err
		}
		for _, p := range favs {
			fmt.Printf("%-12s %-30s %s\n", p.ID, p.Title, p.City)
		}
		fmt.Printf("%d favorites\n", len(favs))
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: favorites [add|remove <id>]")
	}
	switch args[0] {
	case "add":
		return a.client.AddFavorite(ctx, args[1])
	case "remove":
		return a.client.RemoveFavorite(ctx, args[1])
	default:
		return fmt.Errorf("unknown favorites action %q", args[0])
	}
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <path.xlsx>")
	}
	bookings, err := a.client.MyBookings(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.Bookings(bookings, f); err != nil {
		return err
	}
	fmt.Printf("wrote %d bookings to %s\n", len(bookings), args[0])
	return nil
}

func (a *app) cmdChat(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: chat <id> <message>")
	}
	reply, err := a.client.SendInterest(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(reply.Reply)
	return nil
}

// cmdDaemon keeps the session fresh in the background and serves the
// health and metrics endpoints until interrupted.
func (a *app) cmdDaemon(ctx context.Context) error {
	if a.store.Token() != "" {
		a.refresher.Start()
	} else {
		a.logger.Warn().Msg("no stored session, refresher idle until login")
	}

	port := a.cfg.Monitoring.HealthCheckPort
	if port == 0 {
		port = 8090
	}
	go a.startHealthServer(ctx, port)

	if a.cfg.Monitoring.PrometheusEnabled {
		promPort := a.cfg.Monitoring.PrometheusPort
		if promPort == 0 {
			promPort = 9090
		}
		metrics.Register()
		go a.startMetricsServer(ctx, promPort)
	}

	a.logger.Info().Msg("homescout daemon started")
	<-ctx.Done()
	a.refresher.Stop()
	return nil
}

func (a *app) startHealthServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if a.rdb != nil {
			ctxPing, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := a.rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Error().Err(err).Msg("health server error")
	}
}

func (a *app) startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Error().Err(err).Msg("metrics server error")
	}
}
