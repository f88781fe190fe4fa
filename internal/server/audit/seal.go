// Package audit seals consent records so later edits of the stored row are
// detectable. The seal is a keyed BLAKE2b-256 over a canonical encoding of
// every field that identifies the signing event.
package audit

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"golang.org/x/crypto/blake2b"
)

// sealVersion prefixes the canonical encoding.
const sealVersion = "seal-v1"

// Sealer computes and checks record seals.
type Sealer struct {
	key []byte
}

// NewSealer requires a key of 16 to 64 bytes.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) < 16 {
		return nil, errors.New("audit key must be at least 16 bytes")
	}
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("audit key must be at most %d bytes", blake2b.Size)
	}
	return &Sealer{key: append([]byte(nil), key...)}, nil
}

// Seal returns the hex seal of r. AuditDigest itself is not covered.
func (s *Sealer) Seal(r *models.ConsentRecord) (string, error) {
	canon, err := Canonical(r)
	if err != nil {
		return "", err
	}
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", err
	}
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Apply stores the seal in r.AuditDigest.
func (s *Sealer) Apply(r *models.ConsentRecord) error {
	d, err := s.Seal(r)
	if err != nil {
		return err
	}
	r.AuditDigest = d
	return nil
}

// Verify reports common.ErrTamperedRecord when the stored seal does not
// match the record content.
func (s *Sealer) Verify(r *models.ConsentRecord) error {
	want, err := s.Seal(r)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(r.AuditDigest)) != 1 {
		return fmt.Errorf("%w: record %s", common.ErrTamperedRecord, r.ID)
	}
	return nil
}

// Canonical is the length-prefixed encoding that the seal covers. Times are
// encoded in UTC with nanosecond precision; callers truncate them to
// storage precision before sealing.
func Canonical(r *models.ConsentRecord) ([]byte, error) {
	params, err := json.Marshal(r.TextParams)
	if err != nil {
		return nil, fmt.Errorf("encode text params: %w", err)
	}
	img := blake2b.Sum256(r.SignatureImage)

	fields := []string{
		sealVersion,
		r.ID,
		r.TenantID,
		r.SubjectID,
		string(r.Kind),
		string(r.Method),
		strconv.FormatBool(r.Accepted),
		stamp(r.AcceptedAt),
		stamp(r.SignatureTimestamp),
		string(r.DeviceClass),
		r.ChannelAddress,
		r.TextVersion,
		string(params),
		strconv.Itoa(len(r.SignatureImage)),
		hex.EncodeToString(img[:]),
	}

	var out []byte
	for _, f := range fields {
		out = strconv.AppendInt(out, int64(len(f)), 10)
		out = append(out, ':')
		out = append(out, f...)
		out = append(out, ';')
	}
	return out, nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
