package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stc-project/stc/internal/scenario"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCompileLinearChain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "chain.xml", `<scenario name="chain">
  <step name="a" exec="true"/>
  <step name="b" exec="true" requires="a"/>
  <step name="c" exec="true" requires="b"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	order := result.Flow.TopoOrder()
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	require.Less(t, pos["a"], pos["b"])
	require.Less(t, pos["b"], pos["c"])
}

func TestCompileSubstitutesParameters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "params.xml", `<scenario name="params">
  <parameters>
    <param name="target" value="staging"/>
  </parameters>
  <step name="a" exec="echo ${target}"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	node := result.Flow.Node("a")
	require.NotNil(t, node)
	require.Equal(t, "echo staging", node.Command)
}

func TestCompileResultExposesResolvedParams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "params.xml", `<scenario name="params">
  <parameters>
    <param name="target" value="staging"/>
    <param name="region" value="us-east-1"/>
  </parameters>
  <step name="a" exec="echo ${target}"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	require.Equal(t, map[string]string{"target": "staging", "region": "us-east-1"}, result.Params)
}

func TestCompileReadsStepAndGroupDescription(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "described.xml", `<scenario name="described">
  <group name="g" description="setup phase">
    <step name="a" exec="true" description="provision the box"/>
  </group>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	require.Equal(t, "provision the box", result.Flow.Node("a").Description)
	require.Equal(t, "setup phase", result.Flow.Node("g").Description)
}

func TestCompileUndefinedParameterIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "bad.xml", `<scenario name="bad">
  <step name="a" exec="echo ${missing}"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	_, err = Compile(doc, Options{})
	require.Error(t, err)
}

func TestCompileDetectsDependencyCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "cycle.xml", `<scenario name="cycle">
  <step name="a" exec="true" requires="b"/>
  <step name="b" exec="true" requires="a"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	_, err = Compile(doc, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestCompileRejectsUnresolvedReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "badref.xml", `<scenario name="badref">
  <step name="a" exec="true" requires="ghost"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	_, err = Compile(doc, Options{})
	require.Error(t, err)
}

func TestCompileGroupMembersInheritGroupRequires(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "group.xml", `<scenario name="group">
  <step name="pre" exec="true"/>
  <group name="g" requires="pre">
    <step name="g1" exec="true"/>
  </group>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	prereqs := result.Flow.Prerequisites("g1")
	var foundPre bool
	for _, e := range prereqs {
		if e.To == "pre" {
			foundPre = true
		}
	}
	require.True(t, foundPre, "group member must inherit the group's own requires")
}

func TestCompileSoftDependencyEdge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "soft.xml", `<scenario name="soft">
  <step name="a" exec="true"/>
  <step name="b" exec="false" requires="a"/>
  <step name="c" exec="true" requires="!b"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	prereqs := result.Flow.Prerequisites("c")
	require.Len(t, prereqs, 1)
	require.Equal(t, "b", prereqs[0].To)
	require.True(t, prereqs[0].Soft)
}

func TestCompileImportNamespacesMembers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScenario(t, dir, "sub.xml", `<scenario name="sub">
  <step name="build" exec="true"/>
  <step name="test" exec="true" requires="build"/>
</scenario>`)
	path := writeScenario(t, dir, "main.xml", `<scenario name="main">
  <import file="sub.xml" namespace="sub"/>
  <step name="deploy" exec="true" requires="sub.test"/>
</scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	require.NotNil(t, result.Flow.Node("sub.build"))
	require.NotNil(t, result.Flow.Node("sub.test"))

	prereqs := result.Flow.Prerequisites("sub.test")
	require.Len(t, prereqs, 1)
	require.Equal(t, "sub.build", prereqs[0].To)

	deployPrereqs := result.Flow.Prerequisites("deploy")
	require.Len(t, deployPrereqs, 1)
	require.Equal(t, "sub.test", deployPrereqs[0].To)
}

func TestCompileImportCycleIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScenario(t, dir, "a.xml", `<scenario name="a"><import file="b.xml"/></scenario>`)
	path := writeScenario(t, dir, "b.xml", `<scenario name="b"><import file="a.xml"/></scenario>`)

	doc, err := scenario.Load(path)
	require.NoError(t, err)

	_, err = Compile(doc, Options{})
	require.Error(t, err)
}
