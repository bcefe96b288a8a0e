package jobstore

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/model"
)

// HashJob returns the dedup identity of a job: the MD5 of its link, or of
// "title|company|location" when the link is empty.
//
// No normalization is applied. Two links differing only in tracking
// parameters or letter case produce different ids.
func HashJob(j model.Job) string {
	key := j.Link
	if key == "" {
		key = j.Title + "|" + j.Company + "|" + j.Location
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Validate checks the four fields every stored job must carry.
func Validate(j model.Job) error {
	required := []struct {
		field, value string
	}{
		{"title", j.Title},
		{"company", j.Company},
		{"location", j.Location},
		{"link", j.Link},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.ValidationField(r.field, r.field+" is required")
		}
	}
	return nil
}
