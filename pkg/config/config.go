// Package config holds the signer service configuration.
package config

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// PathIdentifier names the signer directory below the user configuration directory.
	PathIdentifier = "manta-signer"

	DataFileName       = "storage.dat"
	ProvingKeyDirName  = "proving"
	DefaultServiceURL  = "http://127.0.0.1:29987"
	DefaultOriginURL   = "https://app.dolphin.manta.network"
	unsafeAnyOriginURL = "*"
)

// Config is the read-only signer configuration handed to an Authorizer Setup.
type Config struct {
	// DataPath locates the encrypted account file.
	DataPath string `json:"data_path"`

	// ProvingKeyDirectory receives the proving keys staged at setup.
	ProvingKeyDirectory string `json:"proving_key_directory"`

	// ServiceURL is the address the signer service listens on.
	ServiceURL string `json:"service_url"`

	// OriginURL is the origin allowed to call the signer service, "*" allows any origin.
	OriginURL string `json:"origin_url"`
}

// Directory returns the signer directory below the user configuration directory.
func Directory() string {
	return filepath.Join(xdg.ConfigHome, PathIdentifier)
}

// Default returns the Config used when no configuration file is given.
func Default() Config {
	dir := Directory()
	return Config{
		DataPath:            filepath.Join(dir, DataFileName),
		ProvingKeyDirectory: filepath.Join(dir, ProvingKeyDirName),
		ServiceURL:          DefaultServiceURL,
		OriginURL:           DefaultOriginURL,
	}
}

// LoadFile returns the Config read from the JSON file at path.
// Fields missing from the file keep their Default value; unknown fields are an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if nil != err {
		return cfg, wrapError(err, "failed reading %s", path)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err = dec.Decode(&cfg)
	if nil != err {
		return cfg, wrapError(ErrorInvalid, "failed decoding %s, got error %v", path, err)
	}

	return cfg, cfg.Check()
}

// Check errors if self is not usable.
func (self Config) Check() error {
	if "" == self.DataPath {
		return wrapError(ErrorInvalid, "empty data_path")
	}
	if filepath.Clean(self.DataPath) == self.DataDirectory() {
		return wrapError(ErrorInvalid, "data_path %s does not name a file", self.DataPath)
	}
	if "" == self.ProvingKeyDirectory {
		return wrapError(ErrorInvalid, "empty proving_key_directory")
	}
	u, err := url.Parse(self.ServiceURL)
	if nil != err || "" == u.Scheme || "" == u.Host {
		return wrapError(ErrorInvalid, "invalid service_url %q", self.ServiceURL)
	}
	if unsafeAnyOriginURL != self.OriginURL {
		u, err = url.Parse(self.OriginURL)
		if nil != err || "" == u.Scheme || "" == u.Host {
			return wrapError(ErrorInvalid, "invalid origin_url %q", self.OriginURL)
		}
	}

	return nil
}

// DataDirectory returns the directory that contains the account file.
func (self Config) DataDirectory() string {
	return filepath.Dir(self.DataPath)
}
