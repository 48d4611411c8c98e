package commands

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/limacina/launcher/internal/apiclient"
	"github.com/limacina/launcher/internal/config"
	"github.com/limacina/launcher/internal/core"
	"github.com/limacina/launcher/internal/format"
	"github.com/limacina/launcher/internal/initseq"
	"github.com/limacina/launcher/internal/persist"
	"github.com/limacina/launcher/internal/router"
	"github.com/limacina/launcher/internal/server"
)

// app is the composition root: every state container and provider is
// created here once and handed to the commands by pointer.
type app struct {
	cfg       *config.LimacinaConfig
	sessionID string

	// bridge resolves the home directory for the init sequence and for
	// paths below it (store, sync root).
	bridge   core.HostBridge
	core     *core.State
	accessor *core.Accessor

	servers  *server.State
	provider *server.Provider

	// api is nil when no backend URL is configured.
	api *apiclient.Client

	routes    *router.Table
	sequencer *initseq.Sequencer
}

// newApp wires the launcher from cfg. bridge is the host runtime's
// directory lookup; nil means no host runtime.
func newApp(cfg *config.LimacinaConfig, bridge core.HostBridge) (*app, error) {
	sessionID, err := format.RandomID()
	if err != nil {
		return nil, err
	}

	if bridge == nil {
		bridge = core.UnavailableBridge{}
	}

	a := &app{
		cfg:       cfg,
		sessionID: sessionID,
		bridge:    bridge,
		core:      core.NewState(),
		routes:    router.DefaultTable(),
	}

	a.accessor = core.NewAccessor(a.core, bridge)
	a.servers = server.NewState(cfg.Server.Name, cfg.Descriptors())
	a.provider = server.NewProvider(a.servers, cfg.StatusEndpoint, nil)

	if base := cfg.APIBaseURL(); base != "" {
		a.api, err = apiclient.NewClient(base, cfg.RequestTimeoutDuration())
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
	}

	a.sequencer = initseq.New(a.core,
		initseq.DefaultTasks(a.provider, a.accessor),
		initseq.WithFloorDelay(cfg.FloorDelayDuration()),
		initseq.WithJoinMode(cfg.JoinMode()),
	)

	log.Printf("[DEBUG] session %s: server=%q servers=%d backend=%q", sessionID, cfg.Server.Name, len(cfg.Descriptors()), cfg.APIBaseURL())
	return a, nil
}

// loadApp reads the env file and configuration named by the global flags
// and wires the launcher with the OS host bridge.
func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, core.OSBridge{})
}

func loadConfig() (*config.LimacinaConfig, error) {
	loaded, err := config.LoadEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	if loaded {
		log.Printf("[DEBUG] loaded environment from %s", envFile)
	}

	if configFileSet {
		return config.Load(configFile)
	}
	return config.LoadOptional(configFile)
}

// openStore opens the configured key-value backend. The file backend lives
// under the bridge's home directory unless store.dir is set. A Redis backend
// is pinged before it is handed out.
func (a *app) openStore(ctx context.Context) (persist.Store, error) {
	switch a.cfg.Store.Backend {
	case "redis":
		store, err := persist.NewRedisStoreFromURL(a.cfg.Store.RedisURL, a.cfg.Store.Namespace)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis is not reachable: %w", err)
		}
		log.Printf("[DEBUG] store: redis namespace %q", a.cfg.Store.Namespace)
		return store, nil
	default:
		dir, err := a.storeDir(ctx)
		if err != nil {
			return nil, err
		}
		store, err := persist.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		log.Printf("[DEBUG] store: %s", store.Dir())
		return store, nil
	}
}

func (a *app) storeDir(ctx context.Context) (string, error) {
	if a.cfg.Store.Dir != "" {
		return a.cfg.Store.Dir, nil
	}
	home, err := a.homeDir(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".limacina", "store", a.cfg.Store.Namespace), nil
}

// homeDir asks the bridge for the home directory. Unlike the accessor used
// by the init sequence, a failure is returned to the caller.
func (a *app) homeDir(ctx context.Context) (string, error) {
	home, err := a.bridge.CheckDir(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return home, nil
}
