package lang

// This file defines the host globals added to the root frame by
// [WithHostGlobals]. They are computed once per process and cloned on every
// access so engines may not share mutations.

import (
	"bufio"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

//nolint:gochecknoglobals
var (
	hostOnce  sync.Once
	hostCache map[string]any
)

// hostGlobals returns a clone of the lazily-initialized host globals.
func hostGlobals() map[string]any {
	hostOnce.Do(func() {
		hostCache = map[string]any{
			"target":   getTarget(),
			"platform": getPlatform(),
			"hostname": getHostname(),
			"user":     getUser(),
			"shell":    getShell(),
			"cwd":      getCwd(),
			"env":      processEnv(os.Environ()),
			"file":     fileFuncs{},
			"path":     pathFuncs{},
		}
	})

	return maps.Clone(hostCache)
}

// HostGlobalNames returns the sorted names added by [WithHostGlobals].
func HostGlobalNames() []string { return sortedKeys(hostGlobals()) }

// target identifies an operating system and instruction set architecture.
type target struct {
	OS   string `stencil:"os"`
	Arch string `stencil:"arch"`
}

func (t target) String() string { return t.Arch + "-" + t.OS }

// getTarget returns the host target using GNU GCC/LLVM naming conventions.
func getTarget() target {
	t := getPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm":
		arm, ok := os.LookupEnv("GOARM")
		if ok {
			arm, _, _ = strings.Cut(arm, ",")
			switch strings.TrimSpace(arm) {
			case "5", "6", "7":
				t.Arch = "armv" + arm
			}
		}
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

// getPlatform returns the host target using Go conventions.
func getPlatform() target {
	var (
		o, a string
		ok   bool
	)

	if o, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if o, ok = os.LookupEnv("GOOS"); !ok {
			o = runtime.GOOS
		}
	}

	if a, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if a, ok = os.LookupEnv("GOARCH"); !ok {
			a = runtime.GOARCH
		}
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

// hostUser is the current user as seen by templates.
type hostUser struct {
	Username string `stencil:"username"`
	Name     string `stencil:"name"`
	UID      string `stencil:"uid"`
	GID      string `stencil:"gid"`
	Home     string `stencil:"home"`
}

func (u hostUser) String() string { return u.Username }

func getUser() hostUser {
	u, err := user.Current()
	if err != nil {
		return hostUser{Username: os.Getenv("USER"), Home: os.Getenv("HOME")}
	}

	return hostUser{
		Username: u.Username,
		Name:     u.Name,
		UID:      u.Uid,
		GID:      u.Gid,
		Home:     u.HomeDir,
	}
}

func getShell() string {
	shell, ok := os.LookupEnv("SHELL")
	if ok {
		return shell
	}

	u, err := user.Current()
	if err != nil || u.Username == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}

	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		e := strings.Split(s.Text(), ":")
		if len(e) > 6 && e[0] == u.Username {
			return e[6]
		}
	}

	return ""
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathFuncs{}.Abs(".")
	}

	return cwd
}

// processEnv converts a "KEY=VALUE" list to a map.
func processEnv(environ []string) map[string]string {
	result := make(map[string]string, len(environ))

	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			result[key] = value
		}
	}

	return result
}

// fileFuncs exposes file tests as methods: file.exists(p), file.isDir(p).
type fileFuncs struct{}

func (fileFuncs) Exists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func (fileFuncs) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func (fileFuncs) IsRegular(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}

func (fileFuncs) IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeSymlink != 0
}

// pathFuncs exposes path manipulation as methods: path.abs(p),
// path.cat(a, b, ...), path.rel(from, to), path.prefix(list, items...).
type pathFuncs struct{}

func (pathFuncs) Abs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func (pathFuncs) Cat(elem ...string) string {
	return filepath.Join(elem...)
}

func (p pathFuncs) Rel(from, to string) string {
	r, err := filepath.Rel(p.Abs(from), p.Abs(to))
	if err != nil {
		return p.Cat(from, to)
	}

	return r
}

func (pathFuncs) Prefix(list string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}
