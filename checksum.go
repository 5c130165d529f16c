package whatfile

import (
	"crypto/md5"  //nolint:gosec // MD5 used for fingerprints, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for fingerprints, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// ChecksumAlgorithms lists the supported algorithms
func ChecksumAlgorithms() []ChecksumAlgorithm {
	return []ChecksumAlgorithm{ChecksumMD5, ChecksumSHA1, ChecksumSHA256, ChecksumSHA512, ChecksumCRC32, ChecksumXXHash}
}

// String implements pflag.Value
func (a *ChecksumAlgorithm) String() string {
	return string(*a)
}

// Set implements pflag.Value
func (a *ChecksumAlgorithm) Set(s string) error {
	algo := ChecksumAlgorithm(s)
	if s != "" && !slices.Contains(ChecksumAlgorithms(), algo) {
		return fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, s)
	}
	*a = algo
	return nil
}

// Type implements pflag.Value
func (a *ChecksumAlgorithm) Type() string {
	return "algorithm"
}

// NewHasher creates a new hash.Hash for the given algorithm.
// Returns an error if the algorithm is not supported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec // MD5 used for fingerprints, not security
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec // SHA1 used for fingerprints, not security
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
}

// CalculateChecksum reads from the reader and calculates the checksum using
// the specified algorithm. Returns the hex-encoded checksum string.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
