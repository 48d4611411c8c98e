package commands

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limacina/launcher/internal/apiclient"
	"github.com/limacina/launcher/internal/config"
	"github.com/limacina/launcher/internal/core"
	"github.com/limacina/launcher/internal/initseq"
	"github.com/limacina/launcher/internal/persist"
	"github.com/limacina/launcher/internal/printer"
	"github.com/limacina/launcher/internal/server"
)

const statusBody = `{"online":true,"host":"mc.example.net","port":25565,` +
	`"version":{"name_raw":"1.20.4","name_clean":"1.20.4","protocol":765},` +
	`"players":{"online":1500,"max":2000},"motd":{"raw":"Hi","clean":"Hi"}}`

// resetFlags restores every command flag variable to its default. Cobra
// keeps flag values between executions of the same command tree.
func resetFlags() {
	configFile = "limacina.yml"
	envFile = ".env"
	verbose = false
	startRoute = "/"
	startServer = ""
	startOutputFormat = "default"
	statusServer = ""
	statusOutputFormat = "default"
	serversOutputFormat = "default"
	apiMethod = "GET"
	apiData = ""
	apiQuery = nil
	serveAddr = ""
	forceInit = false
	syncClean = false
	syncWorkers = 0
	syncOutputFormat = "default"
}

// clearEnv blanks every variable the configuration reads.
func clearEnv(t *testing.T) {
	for _, name := range config.EnvNames() {
		t.Setenv(name, "")
	}
}

// execute runs the real command tree with printer output captured.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	restore := printer.SetOutput(stdout, stderr)
	defer restore()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

type testEnv struct {
	dir        string
	configPath string
	envPath    string
	storeDir   string
	statusHits int
}

// setupEnv writes a limacina.yml pointing at a fake status endpoint and a
// temporary store directory.
func setupEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "limacina.yml"),
		envPath:    filepath.Join(dir, "missing.env"),
		storeDir:   filepath.Join(dir, "store"),
	}

	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.statusHits++
		switch r.URL.Path {
		case "/mc.example.net", "/lobby.example.net":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, statusBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(status.Close)

	content := fmt.Sprintf(`version: "1.0"
server:
  name: Break
  url_status: mc.example.net
servers:
  - name: lobby
    url_status: lobby.example.net
status_endpoint: %q
init:
  floor_delay: 0s
store:
  dir: %q
%s`, status.URL, env.storeDir, extra)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0644))
	return env
}

func (e *testEnv) args(args ...string) []string {
	return append(args, "--config", e.configPath, "--env-file", e.envPath)
}

func TestStartCommand(t *testing.T) {
	t.Run("home view shows server status", func(t *testing.T) {
		env := setupEnv(t, "")
		stdout, _, err := execute(t, env.args("start")...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Launcher ready (Home)")
		assert.Contains(t, stdout, "Break")
		assert.Contains(t, stdout, "1.5K / 2K")
		assert.Contains(t, stdout, "1.20.4")
		assert.Equal(t, 1, env.statusHits)
	})

	t.Run("json output carries state snapshots", func(t *testing.T) {
		env := setupEnv(t, "")
		stdout, _, err := execute(t, env.args("start", "-o", "json")...)
		require.NoError(t, err)

		var view map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &view))
		assert.Regexp(t, `^re\d+[A-Za-z0-9]{2}$`, view["session"])
		assert.Equal(t, false, view["core"].(map[string]any)["isLoading"])
		assert.Equal(t, env.dir, view["core"].(map[string]any)["homeDir"])
		serverView := view["server"].(map[string]any)
		assert.Equal(t, "Break", serverView["serverName"])
		assert.Equal(t, true, serverView["serverInfo"].(map[string]any)["online"])
	})

	t.Run("profile view renders balance as money", func(t *testing.T) {
		env := setupEnv(t, "")
		store, err := persist.NewFileStore(env.storeDir)
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), profileRecord, map[string]any{
			"nickname": "steve",
			"balance":  1234567.9,
		}))

		stdout, _, err := execute(t, env.args("start", "--route", "#/profile")...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Launcher ready (Profile)")
		assert.Contains(t, stdout, "1.234.567")
		assert.Contains(t, stdout, "steve")
	})

	t.Run("unknown route", func(t *testing.T) {
		env := setupEnv(t, "")
		_, stderr, err := execute(t, env.args("start", "--route", "/missing")...)
		require.Error(t, err)
		assert.Equal(t, "unknown route", err.Error())
		assert.Contains(t, stderr, "limacina routes")
		assert.Zero(t, env.statusHits)
	})

	t.Run("selected server is remembered", func(t *testing.T) {
		env := setupEnv(t, "")
		_, _, err := execute(t, env.args("start", "--server", "lobby", "-o", "json")...)
		require.NoError(t, err)

		stdout, _, err := execute(t, env.args("start", "-o", "json")...)
		require.NoError(t, err)
		var view map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &view))
		assert.Equal(t, "lobby", view["server"].(map[string]any)["serverName"])
	})

	t.Run("unknown server is rejected", func(t *testing.T) {
		env := setupEnv(t, "")
		_, stderr, err := execute(t, env.args("start", "--server", "nope")...)
		require.Error(t, err)
		assert.Equal(t, "unknown server", err.Error())
		assert.Contains(t, stderr, `"nope"`)
	})

	t.Run("fail-fast reports the status task", func(t *testing.T) {
		env := setupEnv(t, "")
		clearEnv(t)
		t.Setenv("VITE_APP_URL_STATUS", "down.example.net")

		_, stderr, err := execute(t, env.args("start")...)
		require.Error(t, err)
		assert.Equal(t, "initialization failed", err.Error())
		assert.Contains(t, stderr, initseq.TaskServerStatus)
		assert.Contains(t, stderr, "status endpoint")
	})

	t.Run("best-effort renders without status", func(t *testing.T) {
		env := setupEnv(t, "")
		t.Setenv("VITE_APP_URL_STATUS", "down.example.net")
		content, err := os.ReadFile(env.configPath)
		require.NoError(t, err)
		content = bytes.Replace(content, []byte("  floor_delay: 0s"), []byte("  floor_delay: 0s\n  join_mode: best-effort"), 1)
		require.NoError(t, os.WriteFile(env.configPath, content, 0644))

		stdout, _, err := execute(t, env.args("start")...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Launcher ready")
		assert.Contains(t, stdout, "No server status available")
	})
}

func TestStatusCommand(t *testing.T) {
	t.Run("current server", func(t *testing.T) {
		env := setupEnv(t, "")
		stdout, _, err := execute(t, env.args("status")...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "mc.example.net")
		assert.Contains(t, stdout, "online")
	})

	t.Run("explicit address as json", func(t *testing.T) {
		env := setupEnv(t, "")
		stdout, _, err := execute(t, env.args("status", "lobby.example.net", "-o", "json")...)
		require.NoError(t, err)
		assert.JSONEq(t, statusBody, stdout)
	})

	t.Run("endpoint error", func(t *testing.T) {
		env := setupEnv(t, "")
		_, stderr, err := execute(t, env.args("status", "nowhere.example.net")...)
		require.Error(t, err)
		assert.Equal(t, "status endpoint error", err.Error())
		assert.Contains(t, stderr, "HTTP 404")
	})

	t.Run("no current server", func(t *testing.T) {
		env := setupEnv(t, "")
		_, stderr, err := execute(t, env.args("status", "--server", "nope")...)
		require.Error(t, err)
		assert.Equal(t, "no current server", err.Error())
		assert.Contains(t, stderr, "VITE_APP_SERVER_NAME")
	})

	t.Run("invalid output format", func(t *testing.T) {
		env := setupEnv(t, "")
		_, _, err := execute(t, env.args("status", "-o", "yaml")...)
		require.Error(t, err)
		assert.Equal(t, "invalid output format", err.Error())
	})
}

func TestServersCommand(t *testing.T) {
	env := setupEnv(t, "")
	stdout, _, err := execute(t, env.args("servers", "-o", "json")...)
	require.NoError(t, err)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &snapshot))
	assert.Equal(t, "Break", snapshot["serverName"])
	list := snapshot["serverList"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "lobby", list[1].(map[string]any)["name"])
	assert.Equal(t, map[string]any{}, snapshot["serverInfo"])
}

func TestRoutesCommand(t *testing.T) {
	stdout, _, err := execute(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/profile")
	assert.Contains(t, stdout, "Home2")

	stdout, _, err = execute(t, "routes", "#/profile/?tab=1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile")
	assert.NotContains(t, stdout, "Home2")

	stdout, _, err = execute(t, "routes", "Home2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/home")

	_, _, err = execute(t, "routes", "/nope")
	require.Error(t, err)
	assert.Equal(t, "unknown route", err.Error())
}

func TestAPICommand(t *testing.T) {
	var gotQuery, gotMethod, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotMethod = r.Method
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		gotBody = body.String()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/news":
			fmt.Fprint(w, `{"data":[{"id":1}],"meta":{"total":1}}`)
		case "/api/auth/login":
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"bad credentials"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `<html>bad gateway</html>`)
		}
	}))
	defer backend.Close()

	t.Run("success prints envelope", func(t *testing.T) {
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))
		stdout, _, err := execute(t, env.args("api", "/news", "-q", "b=2", "-q", "a=1")...)
		require.NoError(t, err)
		assert.Equal(t, "a=1&b=2", gotQuery)
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.JSONEq(t, `{"data":[{"id":1}],"meta":{"total":1}}`, stdout)
	})

	t.Run("error message from body", func(t *testing.T) {
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))
		_, stderr, err := execute(t, env.args("api", "/auth/login", "-X", "post", "-d", `{"user":"steve"}`)...)
		require.Error(t, err)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.JSONEq(t, `{"user":"steve"}`, gotBody)
		assert.Contains(t, stderr, "bad credentials")
		assert.Contains(t, stderr, "401")
	})

	t.Run("malformed error body", func(t *testing.T) {
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))
		_, stderr, err := execute(t, env.args("api", "/other")...)
		require.Error(t, err)
		assert.Contains(t, stderr, "not valid JSON")
		assert.Contains(t, stderr, "<html>bad gateway</html>")
	})

	t.Run("no backend configured", func(t *testing.T) {
		env := setupEnv(t, "")
		_, _, err := execute(t, env.args("api", "/news")...)
		require.Error(t, err)
		assert.Equal(t, "no backend configured", err.Error())
	})
}

func TestBuildSettings(t *testing.T) {
	defer printer.SetOutput(new(bytes.Buffer), new(bytes.Buffer))()

	settings, err := buildSettings("/items", "put", `{"a":1}`, []string{"x=1", "y="})
	require.NoError(t, err)
	assert.Equal(t, apiclient.Settings{
		URL:   "/items",
		Type:  "PUT",
		JSON:  map[string]any{"a": float64(1)},
		Query: map[string]string{"x": "1", "y": ""},
	}, settings)

	_, err = buildSettings("/items", "GET", `{broken`, nil)
	assert.EqualError(t, err, "invalid request body")

	_, err = buildSettings("/items", "GET", "", []string{"novalue"})
	assert.EqualError(t, err, "invalid query parameter")

	_, err = buildSettings("/items", "GET", "", []string{"=1"})
	assert.EqualError(t, err, "invalid query parameter")
}

func TestStoreCommand(t *testing.T) {
	env := setupEnv(t, "")

	_, _, err := execute(t, env.args("store", "save", "profile", `{"nickname":"steve","balance":10}`)...)
	require.NoError(t, err)
	_, _, err = execute(t, env.args("store", "save", "profile", `{"balance":20}`)...)
	require.NoError(t, err)

	stdout, _, err := execute(t, env.args("store", "get", "profile")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nickname":"steve","balance":20}`, stdout)

	_, _, err = execute(t, env.args("store", "remove", "profile")...)
	require.NoError(t, err)

	_, _, err = execute(t, env.args("store", "get", "profile")...)
	require.Error(t, err)
	assert.Equal(t, "entry not found", err.Error())

	_, _, err = execute(t, env.args("store", "save", "profile", `[1,2]`)...)
	require.Error(t, err)
	assert.Equal(t, "invalid value", err.Error())

	_, _, err = execute(t, env.args("store", "get", "../etc")...)
	require.Error(t, err)
	assert.Equal(t, "invalid id", err.Error())

	_, _, err = execute(t, env.args("store", "save", "launcher", `{"serverName":"lobby"}`)...)
	require.NoError(t, err)
	stdout, _, err = execute(t, env.args("store", "clear")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared "+env.storeDir)
	assert.DirExists(t, env.storeDir)

	_, _, err = execute(t, env.args("store", "get", "launcher")...)
	require.Error(t, err)
	assert.Equal(t, "entry not found", err.Error())
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, _, err := execute(t, "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "limacina.yml"))
	assert.FileExists(t, filepath.Join(dir, ".env"))

	_, _, err = execute(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")

	_, _, err = execute(t, "init", "--force")
	require.NoError(t, err)
}

func TestSelectServer(t *testing.T) {
	defer printer.SetOutput(new(bytes.Buffer), new(bytes.Buffer))()
	ctx := context.Background()

	newTestApp := func(t *testing.T) *app {
		cfg := &config.LimacinaConfig{
			Server:  config.ServerConfig{Name: "Break", URLStatus: "mc.example.net"},
			Servers: []server.Descriptor{{Name: "lobby", URLStatus: "lobby.example.net"}},
		}
		require.NoError(t, cfg.Validate())
		a, err := newApp(cfg, core.UnavailableBridge{})
		require.NoError(t, err)
		return a
	}

	t.Run("stale saved name falls back", func(t *testing.T) {
		a := newTestApp(t)
		store, err := persist.NewFileStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, launcherRecord, map[string]any{"serverName": "gone"}))

		require.NoError(t, selectServer(ctx, a, store, ""))
		assert.Equal(t, "Break", a.servers.ServerName())
	})

	t.Run("explicit name is saved", func(t *testing.T) {
		a := newTestApp(t)
		store, err := persist.NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, selectServer(ctx, a, store, "lobby"))
		saved, err := store.Get(ctx, launcherRecord)
		require.NoError(t, err)
		assert.Equal(t, "lobby", saved["serverName"])
	})
}

func TestInitFailure(t *testing.T) {
	stderr := new(bytes.Buffer)
	defer printer.SetOutput(new(bytes.Buffer), stderr)()

	joinErr := &initseq.JoinError{Failures: []initseq.TaskFailure{
		{Task: initseq.TaskServerStatus, Err: fmt.Errorf("lookup: %w", server.ErrDescriptorNotFound)},
	}}
	err := initFailure(joinErr)
	assert.EqualError(t, err, "initialization failed")
	assert.Contains(t, stderr.String(), "VITE_APP_SERVER_NAME")

	plain := initFailure(context.Canceled)
	assert.True(t, errors.Is(plain, context.Canceled))
}

func TestProfileValue(t *testing.T) {
	assert.Equal(t, "1.500", profileValue("balance", 1500.75))
	assert.Equal(t, "1500.75", profileValue("score", 1500.75))
	assert.Equal(t, "steve", profileValue("nickname", "steve"))
	assert.Equal(t, "true", profileValue("vip", true))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	newTestApp := func(t *testing.T, store config.StoreConfig, bridge core.HostBridge) *app {
		cfg := &config.LimacinaConfig{
			Server: config.ServerConfig{Name: "Break", URLStatus: "mc.example.net"},
			Store:  &store,
		}
		require.NoError(t, cfg.Validate())
		a, err := newApp(cfg, bridge)
		require.NoError(t, err)
		return a
	}

	t.Run("file store lives under the bridge home", func(t *testing.T) {
		home := t.TempDir()
		a := newTestApp(t, config.StoreConfig{Namespace: "beta"}, core.BridgeFunc(func(ctx context.Context) (string, error) {
			return home, nil
		}))

		store, err := a.openStore(ctx)
		require.NoError(t, err)
		defer store.Close()

		fs, ok := store.(*persist.FileStore)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(home, ".limacina", "store", "beta"), fs.Dir())
		assert.DirExists(t, fs.Dir())
	})

	t.Run("bridge failure is reported", func(t *testing.T) {
		a := newTestApp(t, config.StoreConfig{}, core.UnavailableBridge{})
		_, err := a.openStore(ctx)
		assert.ErrorIs(t, err, core.ErrBridgeUnavailable)
	})

	t.Run("store.dir bypasses the bridge", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "store")
		a := newTestApp(t, config.StoreConfig{Dir: dir}, nil)

		store, err := a.openStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, dir, store.(*persist.FileStore).Dir())
	})

	t.Run("redis store is pinged", func(t *testing.T) {
		mr := miniredis.RunT(t)
		a := newTestApp(t, config.StoreConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()}, nil)

		store, err := a.openStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		require.NoError(t, store.Save(ctx, launcherRecord, map[string]any{"serverName": "Break"}))
		assert.True(t, mr.Exists("limacina:default:store:launcher"))
	})

	t.Run("unreachable redis fails to open", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		a := newTestApp(t, config.StoreConfig{Backend: "redis", RedisURL: "redis://" + addr + "?max_retries=-1"}, nil)

		_, err := a.openStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis is not reachable")
	})
}

// syncBackend serves /api/list and /api/files for files.
func syncBackend(t *testing.T, files map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var requested []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/list":
			list := make(map[string]string, len(files))
			for name, content := range files {
				sum := md5.Sum([]byte(content))
				list[name] = hex.EncodeToString(sum[:])
			}
			json.NewEncoder(w).Encode(map[string]any{"data": list, "meta": map[string]any{"version": "1.20.4-2"}})
		case "/api/files":
			var req struct {
				URL string `json:"url"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			requested = append(requested, req.URL)
			fmt.Fprint(w, files[req.URL])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)
	return backend, &requested
}

func TestSyncCommand(t *testing.T) {
	files := map[string]string{
		"mods/fabric-api.jar": "fabric-api",
		"options.txt":         "fov:90",
	}

	t.Run("downloads into the home game directory and records the result", func(t *testing.T) {
		backend, requested := syncBackend(t, files)
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))

		stdout, _, err := execute(t, env.args("sync", "--workers", "1")...)
		require.NoError(t, err)
		assert.Contains(t, stdout, "2 files to download")
		assert.Contains(t, stdout, "Game files up to date (2 of 2 downloaded)")
		assert.Contains(t, stdout, "1.20.4-2")
		assert.Len(t, *requested, 2)

		got, err := os.ReadFile(filepath.Join(env.dir, "limacina", "mods", "fabric-api.jar"))
		require.NoError(t, err)
		assert.Equal(t, "fabric-api", string(got))

		store, err := persist.NewFileStore(env.storeDir)
		require.NoError(t, err)
		record, err := store.Get(context.Background(), syncRecord)
		require.NoError(t, err)
		assert.Equal(t, "1.20.4-2", record["version"])
		assert.Equal(t, float64(2), record["downloaded"])
	})

	t.Run("up to date files are skipped", func(t *testing.T) {
		backend, requested := syncBackend(t, files)
		game := filepath.Join(t.TempDir(), "game")
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\nsync:\n  dir: %q\n", backend.URL, game))

		_, _, err := execute(t, env.args("sync")...)
		require.NoError(t, err)
		*requested = nil

		stdout, _, err := execute(t, env.args("sync", "-o", "json")...)
		require.NoError(t, err)
		assert.Empty(t, *requested)

		var view map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &view))
		assert.Equal(t, game, view["root"])
		assert.Equal(t, backend.URL+"/api", view["backend"])
		assert.Equal(t, float64(2), view["checked"])
		assert.Equal(t, []any{}, view["downloaded"])
	})

	t.Run("clean downloads everything again", func(t *testing.T) {
		backend, requested := syncBackend(t, files)
		game := filepath.Join(t.TempDir(), "game")
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\nsync:\n  dir: %q\n", backend.URL, game))

		_, _, err := execute(t, env.args("sync")...)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(game, "stray.txt"), []byte("x"), 0644))
		*requested = nil

		_, _, err = execute(t, env.args("sync", "--clean")...)
		require.NoError(t, err)
		assert.Len(t, *requested, 2)
		assert.NoFileExists(t, filepath.Join(game, "stray.txt"))
	})

	t.Run("corrupted download is reported", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/list" {
				fmt.Fprint(w, `{"options.txt":"00000000000000000000000000000000"}`)
				return
			}
			fmt.Fprint(w, "fov:90")
		}))
		t.Cleanup(backend.Close)
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))

		_, stderr, err := execute(t, env.args("sync")...)
		require.Error(t, err)
		assert.Equal(t, "download corrupted", err.Error())
		assert.Contains(t, stderr, "options.txt")
	})

	t.Run("backend error message is shown", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"message":"maintenance"}`)
		}))
		t.Cleanup(backend.Close)
		env := setupEnv(t, fmt.Sprintf("backend_url: %q\n", backend.URL))

		_, stderr, err := execute(t, env.args("sync")...)
		require.Error(t, err)
		assert.Equal(t, "request failed", err.Error())
		assert.Contains(t, stderr, "maintenance")
		assert.Contains(t, stderr, "503")
	})

	t.Run("no backend configured", func(t *testing.T) {
		env := setupEnv(t, "")
		_, _, err := execute(t, env.args("sync")...)
		require.Error(t, err)
		assert.Equal(t, "no backend configured", err.Error())
	})
}
