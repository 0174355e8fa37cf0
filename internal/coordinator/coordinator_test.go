package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stc-project/stc/internal/compiler"
	"github.com/stc-project/stc/internal/runstatus"
	"github.com/stc-project/stc/internal/scenario"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) OnStart(stepName, command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, stepName+".start")
}

func (l *eventLog) OnOutput(string, string) {}

func (l *eventLog) OnCompletion(stepName string, status runstatus.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, stepName+".done")
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// concurrencyProbe tracks the peak number of steps between OnStart and
// OnCompletion at the same time.
type concurrencyProbe struct {
	mu      sync.Mutex
	running int
	peak    int
}

func (p *concurrencyProbe) OnStart(string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running++
	if p.running > p.peak {
		p.peak = p.running
	}
}

func (p *concurrencyProbe) OnOutput(string, string) {}

func (p *concurrencyProbe) OnCompletion(string, runstatus.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running--
}

func compileXML(t *testing.T, body string) (*compiler.Result, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := compiler.Compile(doc, compiler.Options{})
	require.NoError(t, err)
	return result, dir
}

func runToCompletion(t *testing.T, result *compiler.Result, l *eventLog) *Coordinator {
	t.Helper()
	c := New(Config{Flow: result.Flow, LogDir: result.LogDir, Workers: 4})
	if l != nil {
		c.AddListener(l)
	}
	c.Start(context.Background())
	done := make(chan int, 1)
	go func() { done <- c.WaitFor() }()
	select {
	case code := <-done:
		_ = code
	case <-time.After(10 * time.Second):
		t.Fatal("coordinator run timed out")
	}
	return c
}

func TestLinearChainRunsInOrder(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="chain">
  <step name="a" exec="true"/>
  <step name="b" exec="true" requires="a"/>
  <step name="c" exec="true" requires="b"/>
</scenario>`)

	l := &eventLog{}
	c := runToCompletion(t, result, l)

	require.Equal(t, "SUCCEEDED", c.GetStatus("a"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("b"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("c"))
	require.Equal(t, []string{"a.start", "a.done", "b.start", "b.done", "c.start", "c.done"}, l.snapshot())
}

func TestFailurePropagatesToSkipped(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="propagate">
  <step name="a" exec="true"/>
  <step name="b" exec="false" requires="a"/>
  <step name="c" exec="true" requires="b"/>
</scenario>`)

	c := runToCompletion(t, result, nil)

	require.Equal(t, "SUCCEEDED", c.GetStatus("a"))
	require.Equal(t, "FAILED", c.GetStatus("b"))
	require.Equal(t, "SKIPPED", c.GetStatus("c"))
}

func TestSoftDependencyAllowsDependentToRun(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="soft">
  <step name="a" exec="true"/>
  <step name="b" exec="false" requires="a"/>
  <step name="c" exec="true" requires="!b"/>
</scenario>`)

	c := runToCompletion(t, result, nil)

	require.Equal(t, "SUCCEEDED", c.GetStatus("a"))
	require.Equal(t, "FAILED", c.GetStatus("b"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("c"))
}

func TestParallelFanOutRespectsWorkerPool(t *testing.T) {
	t.Parallel()

	body := `<scenario name="fanout">
  <step name="root" exec="true"/>`
	for i := 0; i < 10; i++ {
		body += `
  <step name="child` + string(rune('a'+i)) + `" exec="true" requires="root"/>`
	}
	body += `
</scenario>`

	result, _ := compileXML(t, body)
	c := New(Config{Flow: result.Flow, LogDir: result.LogDir, Workers: 4})
	probe := &concurrencyProbe{}
	c.AddListener(probe)
	c.Start(context.Background())
	code := c.WaitFor()
	require.Equal(t, 0, code)
	probe.mu.Lock()
	peak := probe.peak
	probe.mu.Unlock()
	require.LessOrEqual(t, peak, 4)
	for i := 0; i < 10; i++ {
		require.Equal(t, "SUCCEEDED", c.GetStatus("child"+string(rune('a'+i))))
	}
}

func TestGroupStatusDerivedFromMembers(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="group">
  <group name="g">
    <step name="g1" exec="true"/>
    <step name="g2" exec="true"/>
  </group>
  <step name="d" exec="true" requires="g"/>
</scenario>`)

	c := runToCompletion(t, result, nil)

	require.Equal(t, "SUCCEEDED", c.GetStatus("g1"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("g2"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("g"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("d"))
}

func TestRangeRunSkipsOutsideActiveSubgraph(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="range">
  <step name="a" exec="true"/>
  <step name="b1" exec="true" requires="a"/>
  <step name="c1" exec="true" requires="b1"/>
  <step name="d" exec="true" requires="c1"/>
</scenario>`)

	c := New(Config{Flow: result.Flow, LogDir: result.LogDir, Workers: 4})
	require.NoError(t, c.ResetRange([]string{"b*"}, []string{"c*"}))
	c.Start(context.Background())
	code := c.WaitFor()

	require.Equal(t, 0, code)
	require.Equal(t, "SKIPPED", c.GetStatus("a"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("b1"))
	require.Equal(t, "SUCCEEDED", c.GetStatus("c1"))
	require.Equal(t, "SKIPPED", c.GetStatus("d"))
}

func TestHaltOnErrorSkipsRemainingWaitingSteps(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="halt">
  <step name="a" exec="false"/>
  <step name="b" exec="true"/>
</scenario>`)

	c := New(Config{Flow: result.Flow, LogDir: result.LogDir, Workers: 1, HaltOnError: true})
	c.Start(context.Background())
	code := c.WaitFor()

	require.Equal(t, 1, code)
	require.Equal(t, "FAILED", c.GetStatus("a"))
	require.Equal(t, "SKIPPED", c.GetStatus("b"))
}

func TestFailureCascadesThroughDeepHardChain(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="cascade">
  <step name="a" exec="false"/>
  <step name="b" exec="true" requires="a"/>
  <step name="c" exec="true" requires="b"/>
  <step name="d" exec="true" requires="c"/>
</scenario>`)

	c := runToCompletion(t, result, nil)

	require.Equal(t, "FAILED", c.GetStatus("a"))
	require.Equal(t, "SKIPPED", c.GetStatus("b"))
	require.Equal(t, "SKIPPED", c.GetStatus("c"))
	require.Equal(t, "SKIPPED", c.GetStatus("d"))
}

func TestContextCancellationReportsAbortExitCode(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="abort">
  <step name="a" exec="sleep 5"/>
</scenario>`)

	c := New(Config{Flow: result.Flow, LogDir: result.LogDir, Workers: 4})
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	require.Eventually(t, func() bool {
		return c.GetStatus("a") == "IN_PROGRESS"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan int, 1)
	go func() { done <- c.WaitFor() }()
	select {
	case code := <-done:
		require.Equal(t, 1, code)
	case <-time.After(10 * time.Second):
		t.Fatal("coordinator run timed out after cancellation")
	}
}

func TestRecordsArePersistedAcrossRun(t *testing.T) {
	t.Parallel()

	result, _ := compileXML(t, `<scenario name="record">
  <step name="a" exec="true"/>
</scenario>`)

	c := runToCompletion(t, result, nil)
	records, err := c.GetRecords()
	require.NoError(t, err)
	require.NotEmpty(t, records)
}
