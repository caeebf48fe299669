package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New 返回按时间有序的 ULID，用于投递ID等存储键
func New() string {
	return next(time.Now()).String()
}

// NewSlug 返回小写 ULID，作为未指定自定义标识时的短链 slug
func NewSlug() string {
	return strings.ToLower(New())
}

// Time 解析 ULID 中的时间戳
func Time(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

func next(at time.Time) ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy)
}
