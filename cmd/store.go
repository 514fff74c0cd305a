package cmd

import (
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/KaramelBytes/datalens-cli/internal/insight"
)

// openStore opens the configured insight store. The returned close func
// must be called when the command is done with it.
func openStore(c *cfgpkg.Global) (*insight.Store, func(), error) {
	opts := []insight.Option{insight.WithLogger(logger), insight.WithSampleRows(c.SampleRows)}
	if c.StoreBackend == cfgpkg.BackendSQLite {
		b, err := insight.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return insight.NewStore(b, opts...), func() { _ = b.Close() }, nil
	}
	return insight.NewStore(insight.NewFileBackend(c.InsightsPath), opts...), func() {}, nil
}
