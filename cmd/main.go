package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/LiquidSpot/TwitchAI-sub001/handler"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/dispatch"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/facts"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/gate"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/integrations/alerts"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/integrations/holidays"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/integrations/openai"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/integrations/paramstore"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/integrations/twitch"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/repository"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/usecase"
	"github.com/LiquidSpot/TwitchAI-sub001/internal/viewers"
)

// defaultFacts seeds the rotation when no override is stored in SSM.
var defaultFacts = []string{
	"honey never spoils, archaeologists have eaten 3000-year-old jars of it",
	"octopuses have three hearts and blue blood",
	"a day on Venus is longer than its year",
	"bananas are berries but strawberries are not",
	"the first computer bug was an actual moth taped into a logbook",
	"sharks existed before trees",
	"there are more possible chess games than atoms in the observable universe",
}

func main() {
	ctx := context.Background()
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	channel := mustEnv("CHANNEL")
	botUserID := mustEnv("BOT_USER_ID")
	alertDaemonURL := mustEnv("ALERT_DAEMON_URL")
	soundDir := mustEnv("SOUND_RESOURCE_DIR")
	holidayCountry := envStr("HOLIDAY_COUNTRY", "US")
	holidayLanguage := envStr("HOLIDAY_LANGUAGE", "en")
	maxTurns := envInt("MAX_CONVERSATION_TURNS", 10)
	soundCooldown := time.Duration(envInt("SOUND_COOLDOWN_SECONDS", 10)) * time.Second
	statsWindow := time.Duration(envInt("STATS_WINDOW_MINUTES", 10)) * time.Minute

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Integration clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		log.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	repo, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		log.Error("failed to create repository", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		log.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	twitchClient, err := twitch.NewClient(ssmClient, paramPrefix, botUserID)
	if err != nil {
		log.Error("failed to create Twitch client", "err", err)
		os.Exit(1)
	}
	holidayClient, err := holidays.NewClient(holidayCountry)
	if err != nil {
		log.Error("failed to create holiday client", "err", err)
		os.Exit(1)
	}
	alertClient, err := alerts.NewClient(alertDaemonURL)
	if err != nil {
		log.Error("failed to create alert client", "err", err)
		os.Exit(1)
	}

	// ---- Shared state ----
	tracker, err := viewers.NewTracker(2 * statsWindow)
	if err != nil {
		log.Error("failed to create viewer tracker", "err", err)
		os.Exit(1)
	}
	aggregator, err := viewers.NewAggregator(twitchClient, tracker)
	if err != nil {
		log.Error("failed to create viewer aggregator", "err", err)
		os.Exit(1)
	}
	soundGate, err := gate.New(soundCooldown)
	if err != nil {
		log.Error("failed to create sound gate", "err", err)
		os.Exit(1)
	}
	factPool, err := facts.NewPool(loadFacts(ctx, ssmClient, paramPrefix, log))
	if err != nil {
		log.Error("failed to create fact pool", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	chatSvc, err := usecase.NewChatService(openaiClient, repo, ssmClient, repo, log, paramPrefix, maxTurns)
	if err != nil {
		log.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	settingsSvc, err := usecase.NewSettingsService(repo)
	if err != nil {
		log.Error("failed to create settings service", "err", err)
		os.Exit(1)
	}
	translateSvc, err := usecase.NewTranslateService(openaiClient, repo, log)
	if err != nil {
		log.Error("failed to create translate service", "err", err)
		os.Exit(1)
	}
	holidaySvc, err := usecase.NewHolidayService(holidayClient, repo, log, holidayLanguage)
	if err != nil {
		log.Error("failed to create holiday service", "err", err)
		os.Exit(1)
	}
	soundSvc, err := usecase.NewSoundService(alertClient, soundGate, log, soundDir, soundCooldown)
	if err != nil {
		log.Error("failed to create sound service", "err", err)
		os.Exit(1)
	}
	statsSvc, err := usecase.NewStatsService(aggregator, repo, log, channel, statsWindow)
	if err != nil {
		log.Error("failed to create stats service", "err", err)
		os.Exit(1)
	}
	factSvc, err := usecase.NewFactService(factPool, repo)
	if err != nil {
		log.Error("failed to create fact service", "err", err)
		os.Exit(1)
	}

	// ---- Dispatch + handler ----
	dispatcher, err := dispatch.New(dispatch.Deps{
		Log:       log,
		Chat:      chatSvc,
		Settings:  settingsSvc,
		Translate: translateSvc,
		Holiday:   holidaySvc,
		Sound:     soundSvc,
		Stats:     statsSvc,
		Facts:     factSvc,
		Tracker:   tracker,
		Channel:   channel,
	})
	if err != nil {
		log.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(dispatcher)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// loadFacts reads the fact rotation from SSM (<prefix>/facts, one fact
// per line), falling back to the builtin list when the parameter does
// not exist.
func loadFacts(ctx context.Context, ps *paramstore.Client, paramPrefix string, log *slog.Logger) []string {
	raw, err := ps.GetParameter(ctx, strings.TrimRight(paramPrefix, "/")+"/facts")
	if err != nil {
		if !errors.Is(err, domain.ErrParameterNotFound) {
			log.Warn("fact list lookup failed, using builtin facts", "err", err)
		}
		return defaultFacts
	}

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return defaultFacts
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
