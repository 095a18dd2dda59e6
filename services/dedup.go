package services

import (
	"crypto/md5"
	"encoding/hex"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"
)

// Deduplicator rejects videos already seen in the current run
type Deduplicator struct {
	seen *utils.ContentHashSet
}

// NewDeduplicator starts an empty run-scoped set
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: utils.NewContentHashSet()}
}

// Fingerprint is the hex md5 of id followed by title
func Fingerprint(id, title string) string {
	sum := md5.Sum([]byte(id + title))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether v was already marked seen
func (d *Deduplicator) IsDuplicate(v *models.RawVideo) bool {
	return d.seen.Contains(Fingerprint(v.ID, v.Title))
}

// MarkSeen records v
func (d *Deduplicator) MarkSeen(v *models.RawVideo) {
	d.seen.Add(Fingerprint(v.ID, v.Title))
}

// Claim marks v seen and returns false if it already was. Safe for
// concurrent workers racing on the same video.
func (d *Deduplicator) Claim(v *models.RawVideo) (string, bool) {
	fp := Fingerprint(v.ID, v.Title)
	return fp, d.seen.Add(fp)
}

// Count returns the number of distinct videos seen
func (d *Deduplicator) Count() int {
	return d.seen.Count()
}
