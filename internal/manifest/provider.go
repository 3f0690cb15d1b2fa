package manifest

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/avast/apkverifier"
	"github.com/shogo82148/androidbinary"
	"github.com/shogo82148/androidbinary/apk"

	"github.com/nao1215/apkscan/internal/model"
)

// manifestEntry is the zip entry holding the binary manifest.
const manifestEntry = "AndroidManifest.xml"

// maxManifestSize bounds how much of the manifest entry is read.
const maxManifestSize = 32 * 1024 * 1024

// axmlMagic is the chunk header that starts a binary XML document.
var axmlMagic = []byte{0x03, 0x00, 0x08, 0x00}

// Load reads a manifest tree from an APK, a binary AXML file or a text XML
// file. A missing path yields model.ErrInputNotFound.
func Load(path string) (*Element, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrInputNotFound, path)
		}
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".apk") {
		return LoadAPK(path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // analyst-supplied path
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, axmlMagic) {
		return ParseBinaryXML(bytes.NewReader(data))
	}
	return ParseXML(bytes.NewReader(data))
}

// LoadAPK extracts and decodes AndroidManifest.xml from an APK archive.
func LoadAPK(path string) (*Element, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: open archive: %v", ErrMalformedManifest, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != manifestEntry {
			continue
		}
		if f.UncompressedSize64 > maxManifestSize {
			return nil, fmt.Errorf("%w: manifest entry too large (%d bytes)", ErrMalformedManifest, f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxManifestSize))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}
		if !bytes.HasPrefix(data, axmlMagic) {
			return ParseXML(bytes.NewReader(data))
		}
		return ParseBinaryXML(bytes.NewReader(data))
	}

	return nil, fmt.Errorf("%w: %s has no %s", ErrMalformedManifest, filepath.Base(path), manifestEntry)
}

// ParseBinaryXML decodes a compiled (AXML) manifest.
func ParseBinaryXML(r io.ReaderAt) (*Element, error) {
	xmlFile, err := androidbinary.NewXMLFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode binary xml: %v", ErrMalformedManifest, err)
	}
	return ParseXML(xmlFile.Reader())
}

// PackageInfo describes an APK file for the repository.
type PackageInfo struct {
	FileName        string
	FilePath        string
	Size            int64
	SHA256          string
	PackageName     string
	CertFingerprint string
}

// Inspect hashes an APK and reads its package name and signing certificate.
// Only the hash is mandatory; package name and certificate failures are
// returned as a joined warning next to a usable PackageInfo.
func Inspect(path string) (*PackageInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrInputNotFound, path)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	sum, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info := &PackageInfo{
		FileName: filepath.Base(path),
		FilePath: abs,
		Size:     fi.Size(),
		SHA256:   sum,
	}

	var warnings []error
	if name, err := packageName(path); err != nil {
		warnings = append(warnings, err)
	} else {
		info.PackageName = name
	}
	if fp, err := certFingerprint(path); err != nil {
		warnings = append(warnings, err)
	} else {
		info.CertFingerprint = fp
	}

	return info, errors.Join(warnings...)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // analyst-supplied path
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func packageName(path string) (string, error) {
	pkg, err := apk.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("read package name: %w", err)
	}
	defer pkg.Close()
	return pkg.PackageName(), nil
}

func certFingerprint(path string) (string, error) {
	res, err := apkverifier.Verify(path, nil)
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}
	_, cert := apkverifier.PickBestApkCert(res.SignerCerts)
	if cert == nil {
		return "", errors.New("verify signature: no signing certificate found")
	}
	fp := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(fp[:]), nil
}
