package handshake

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tbaut/manta-signer/internal/observability"
)

const provingKeyExt = ".bin"

// StageResources copies proving keys from resourceDir to provingKeyDir.
//
// Regular files named *.bin are copied, as are the regular files contained in directories
// named *.bin. A missing resourceDir is not an error, development builds do not ship one.
func StageResources(ctx context.Context, resourceDir string, provingKeyDir string) error {
	log := observability.GetObservability(ctx).Log()
	if "" == resourceDir {
		return nil
	}

	entries, err := os.ReadDir(resourceDir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no resource directory, skipping proving key staging", "path", resourceDir)
		return nil
	}
	if nil != err {
		return wrapError(err, "failed reading resource directory")
	}
	err = os.MkdirAll(provingKeyDir, 0700)
	if nil != err {
		return wrapError(err, "failed creating proving key directory")
	}

	var count int
	for _, entry := range entries {
		if nil != ctx.Err() {
			return wrapError(ctx.Err(), "staging interrupted")
		}
		name := entry.Name()
		if !strings.HasSuffix(name, provingKeyExt) {
			continue
		}
		path := filepath.Join(resourceDir, name)
		switch {
		case entry.Type().IsRegular():
			err = copyFile(path, filepath.Join(provingKeyDir, name))
			count += 1
		case entry.IsDir():
			var n int
			n, err = copyDir(path, provingKeyDir)
			count += n
		}
		if nil != err {
			return wrapError(err, "failed staging %s", name)
		}
	}
	log.Info("proving keys staged", "count", count, "path", provingKeyDir)

	return nil
}

// copyDir copies the regular files of src into dst and returns how many were copied.
func copyDir(src string, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if nil != err {
		return 0, wrapError(err, "failed reading %s", src)
	}
	var count int
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		err = copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()))
		if nil != err {
			return count, err
		}
		count += 1
	}
	return count, nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if nil != err {
		return wrapError(err, "failed opening %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if nil != err {
		return wrapError(err, "failed creating %s", dst)
	}
	_, err = io.Copy(out, in)
	if nil != err {
		out.Close()
		return wrapError(err, "failed copying %s", src)
	}

	return wrapError(out.Close(), "failed closing %s", dst)
}
