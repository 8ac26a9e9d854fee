// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

package cache

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// DefaultCacheDirName is the directory created under the user's home
// directory to hold bootstrap registry files.
const DefaultCacheDirName = ".rdapkit"

// DiskCache stores bootstrap registry files under a directory on disk,
// so the registries survive process restarts.
type DiskCache struct {
	Dir     string
	Timeout time.Duration

	mu sync.Mutex
}

// NewDiskCache creates a DiskCache rooted at $HOME/.rdapkit, or at dir
// if dir is non-empty. The directory is created lazily on first Save.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, DefaultCacheDirName)
	}

	return &DiskCache{
		Dir:     dir,
		Timeout: 24 * time.Hour,
	}, nil
}

func (d *DiskCache) SetTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Timeout = timeout
}

func (d *DiskCache) path(filename string) string {
	return filepath.Join(d.Dir, filename)
}

func (d *DiskCache) Save(filename string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}

	return ioutil.WriteFile(d.path(filename), data, 0o644)
}

func (d *DiskCache) Load(filename string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := ioutil.ReadFile(d.path(filename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (d *DiskCache) State(filename string) FileState {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := os.Stat(d.path(filename))
	if err != nil {
		return Absent
	}

	if time.Now().After(info.ModTime().Add(d.Timeout)) {
		return Expired
	}

	return Good
}
