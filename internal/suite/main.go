package suite

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/tomyan/pagekit/internal/config"
	"github.com/tomyan/pagekit/internal/report"
	"github.com/tomyan/pagekit/internal/runner"
)

// Main sets up a run for a spec package, hands the runtime to use and runs
// the package's tests. Call it from TestMain:
//
//	var rt *runner.Runtime
//
//	func TestMain(m *testing.M) {
//		os.Exit(suite.Main(m, func(r *runner.Runtime) { rt = r }))
//	}
//
// The configuration is found the way config.Load finds it; the reporter is
// always attached.
func Main(m *testing.M, use func(*runner.Runtime), opts ...runner.Option) int {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagekit: %v\n", err)
		return 1
	}

	opts = append([]runner.Option{runner.WithPlugins(report.Register)}, opts...)
	rt, err := runner.Setup(ctx, cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagekit: %v\n", err)
		return 1
	}
	use(rt)

	code := m.Run()
	if err := rt.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pagekit: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}
