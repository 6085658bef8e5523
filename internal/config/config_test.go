package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEffective_ConfigAbsent_FallsBackToDefault(t *testing.T) {
	root := t.TempDir()

	eff := LoadEffective(root)
	def := Default()

	if eff.Username != def.Username {
		t.Fatalf("期望 username=%q，实际=%q", def.Username, eff.Username)
	}
	if !reflect.DeepEqual(eff.Services, def.Services) {
		t.Fatalf("期望 services=%v，实际=%v", def.Services, eff.Services)
	}
	if eff.Name != def.Name {
		t.Fatalf("期望 name=%q，实际=%q", def.Name, eff.Name)
	}
	if eff.Concurrency != DefaultConcurrency {
		t.Fatalf("期望 concurrency=%d，实际=%d", DefaultConcurrency, eff.Concurrency)
	}
	if eff.Path != root {
		t.Fatalf("期望 path=%q，实际=%q", root, eff.Path)
	}
}

func TestLoadEffective_MalformedConfig_FallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), []byte(`{`))

	// 坏配置不允许阻断检查：整体回退默认，绝不 panic/报错。
	eff := LoadEffective(root)
	if eff.Username != Default().Username {
		t.Fatalf("期望回退默认 username，实际=%q", eff.Username)
	}
}

func TestLoadEffective_ServicesOrderPreserved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName),
		[]byte(`{"username":"alice","services":["Hulu","  ","Netflix",""],"name":"alice"}`))

	eff := LoadEffective(root)
	// 顺序即匹配优先级：必须原样保留（空项剔除）。
	want := []string{"Hulu", "Netflix"}
	if !reflect.DeepEqual(eff.Services, want) {
		t.Fatalf("期望 services=%v，实际=%v", want, eff.Services)
	}
	if eff.Username != "alice" {
		t.Fatalf("期望 username=alice，实际=%q", eff.Username)
	}
}

func TestLoadEffective_FieldLevelFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), []byte(`{"username":"bob"}`))

	eff := LoadEffective(root)
	if eff.Username != "bob" {
		t.Fatalf("期望 username=bob，实际=%q", eff.Username)
	}
	if !reflect.DeepEqual(eff.Services, Default().Services) {
		t.Fatalf("services 缺失应回退默认，实际=%v", eff.Services)
	}
	if eff.Name != Default().Name {
		t.Fatalf("name 缺失应回退默认，实际=%q", eff.Name)
	}
}

func TestLoadEffective_ConcurrencyClamp(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`{"concurrency":0}`, DefaultConcurrency},
		{`{"concurrency":-3}`, 1},
		{`{"concurrency":100}`, 32},
		{`{"concurrency":4}`, 4},
	}

	for _, c := range cases {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ConfigFileName), []byte(c.raw))
		eff := LoadEffective(root)
		if eff.Concurrency != c.want {
			t.Fatalf("%s：期望 concurrency=%d，实际=%d", c.raw, c.want, eff.Concurrency)
		}
	}
}

func TestLoadEffective_InvalidProxyIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), []byte(`{"proxy":{"url":"not a url"}}`))

	eff := LoadEffective(root)
	if eff.ProxyURL != "" {
		t.Fatalf("无效 proxy 应忽略（直连），实际=%q", eff.ProxyURL)
	}
}

func TestLoadEffective_ValidProxyKept(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), []byte(`{"proxy":{"url":"http://127.0.0.1:8080"}}`))

	eff := LoadEffective(root)
	if eff.ProxyURL != "http://127.0.0.1:8080" {
		t.Fatalf("期望保留 proxy，实际=%q", eff.ProxyURL)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
