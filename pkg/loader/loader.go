// Package loader turns program image files into segment 0 words.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/crypto/blake2b"

	"um/pkg/bitpack"
	"um/pkg/types"
)

// DefaultExtensions are the image file extensions accepted when none are
// configured.
var DefaultExtensions = []string{".um", ".umz"}

// ErrBadExtension is returned by CheckExtension for unrecognised image names.
var ErrBadExtension = errors.New("unrecognised image extension")

var log = commonlog.GetLogger("um.loader")

// Image is a decoded program image.
type Image struct {
	Path  string
	Words []types.Word
	// TrailingBytes counts the bytes past the last whole word. They are
	// not part of the program.
	TrailingBytes int
	Digest        [32]byte
}

// Size returns the image length in bytes, trailing bytes included.
func (img *Image) Size() int {
	return len(img.Words)*4 + img.TrailingBytes
}

// Words groups b into big-endian words. A trailing partial word is ignored.
func Words(b []byte) []types.Word {
	words := make([]types.Word, len(b)/4)
	for i := range words {
		var w uint32
		for j := uint(0); j < 4; j++ {
			w = bitpack.MustNewU(w, 8, 24-8*j, uint32(b[4*i+int(j)]))
		}
		words[i] = types.Word(w)
	}
	return words
}

// Bytes is the inverse of Words.
func Bytes(words []types.Word) []byte {
	b := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for j := uint(0); j < 4; j++ {
			b = append(b, byte(bitpack.GetU(uint32(w), 8, 24-8*j)))
		}
	}
	return b
}

// Load reads a whole image from r.
func Load(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return decode(data), nil
}

// LoadFile reads the image at path.
func LoadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img := decode(data)
	img.Path = path

	if img.TrailingBytes != 0 {
		log.Warning("image size is not a multiple of 4, ignoring trailing bytes",
			"path", path,
			"trailing", img.TrailingBytes)
	}
	log.Debug("image loaded", "path", path, "words", len(img.Words), "digest", fmt.Sprintf("%x", img.Digest))
	return img, nil
}

func decode(data []byte) *Image {
	return &Image{
		Words:         Words(data),
		TrailingBytes: len(data) % 4,
		Digest:        blake2b.Sum256(data),
	}
}

// CheckExtension reports ErrBadExtension unless path ends with one of the
// accepted extensions. Matching ignores case.
func CheckExtension(path string, accepted []string) error {
	if len(accepted) == 0 {
		accepted = DefaultExtensions
	}
	ext := filepath.Ext(path)
	for _, a := range accepted {
		if strings.EqualFold(ext, a) {
			return nil
		}
	}
	return fmt.Errorf("%w %q for %s (want one of %s)", ErrBadExtension, ext, path, strings.Join(accepted, ", "))
}
