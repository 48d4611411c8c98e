package config

// Environment variables read by ApplyEnv. Each setting has a LIMACINA_ name
// and the VITE_APP_ name used by the web build; the LIMACINA_ one wins.
var envBindings = []struct {
	names []string
	apply func(c *LimacinaConfig, v string)
}{
	{
		names: []string{"LIMACINA_BACKEND_URL", "VITE_APP_BACKEND_URL"},
		apply: func(c *LimacinaConfig, v string) { c.BackendURL = v },
	},
	{
		names: []string{"LIMACINA_SERVER_NAME", "VITE_APP_SERVER_NAME"},
		apply: func(c *LimacinaConfig, v string) { c.Server.Name = v },
	},
	{
		names: []string{"LIMACINA_URL_LAUNCHER", "VITE_APP_URL_LAUNCHER"},
		apply: func(c *LimacinaConfig, v string) { c.Server.URLLauncher = v },
	},
	{
		names: []string{"LIMACINA_URL_STATUS", "VITE_APP_URL_STATUS"},
		apply: func(c *LimacinaConfig, v string) { c.Server.URLStatus = v },
	},
	{
		names: []string{"LIMACINA_REDIS_URL"},
		apply: func(c *LimacinaConfig, v string) {
			if c.Store == nil {
				c.Store = &StoreConfig{}
			}
			c.Store.RedisURL = v
		},
	},
}

// EnvNames lists every variable ApplyEnv reads, in precedence order.
func EnvNames() []string {
	var names []string
	for _, b := range envBindings {
		names = append(names, b.names...)
	}
	return names
}

// ApplyEnv overlays environment values onto the file configuration. Only
// non-empty variables are applied.
func (c *LimacinaConfig) ApplyEnv(lookup func(string) (string, bool)) {
	for _, b := range envBindings {
		for _, name := range b.names {
			if v, ok := lookup(name); ok && v != "" {
				b.apply(c, v)
				break
			}
		}
	}
}
