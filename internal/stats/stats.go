// Package stats keeps in-memory per-character combat statistics and the
// worst wound dealt each UTC day.
package stats

import (
	"sync"
	"time"

	"github.com/pefman/armorsheet/internal/game"
	"github.com/pefman/armorsheet/internal/models"
)

// CharacterStats accumulates every resolution recorded for a character.
type CharacterStats struct {
	Attacks      int       `json:"attacks"`
	Hits         int       `json:"hits"`
	Wounds       int       `json:"wounds"`
	DamageTaken  int       `json:"damage_taken"`
	MortalWounds int       `json:"mortal_wounds"`
	ArmorAblated int       `json:"armor_ablated"`
	LastAttack   time.Time `json:"last_attack,omitempty"`
}

// WorstWound is the wound with the highest effective damage seen on one day.
type WorstWound struct {
	CharacterID string             `json:"character_id"`
	Wound       models.WoundRecord `json:"wound"`
	At          time.Time          `json:"at"`
}

var (
	statsMu   sync.Mutex
	charStats = make(map[string]CharacterStats)
	// worst wound per day, keyed by YYYY-MM-DD in UTC
	dailyWorst = make(map[string]WorstWound)
)

// Record folds one resolution into the character's totals and the daily worst wound.
func Record(characterID string, res game.Resolution) {
	at := now().UTC()
	statsMu.Lock()
	defer statsMu.Unlock()

	s := charStats[characterID]
	s.Attacks++
	s.Hits += len(res.Hits)
	s.Wounds += len(res.Wounds)
	s.DamageTaken += res.DamageOut
	s.ArmorAblated += res.Ablated
	s.LastAttack = at
	for _, w := range res.Wounds {
		if w.IsMortal() {
			s.MortalWounds++
		}
	}
	charStats[characterID] = s

	key := dateKey(at)
	for _, w := range res.Wounds {
		rec := w.Record()
		cur, ok := dailyWorst[key]
		if !ok || rec.Effective > cur.Wound.Effective {
			dailyWorst[key] = WorstWound{CharacterID: characterID, Wound: rec, At: at}
		}
	}
}

// Get returns the totals for a character, zero when nothing was recorded.
func Get(characterID string) CharacterStats {
	statsMu.Lock()
	defer statsMu.Unlock()
	return charStats[characterID]
}

// Forget drops the totals of a deleted character, along with any daily worst
// wound it holds. A day whose worst wound is dropped reports none until the next
// wound is recorded.
func Forget(characterID string) {
	statsMu.Lock()
	defer statsMu.Unlock()
	delete(charStats, characterID)
	for key, w := range dailyWorst {
		if w.CharacterID == characterID {
			delete(dailyWorst, key)
		}
	}
}

// WorstWoundToday returns today's worst wound, if any wound was dealt today.
func WorstWoundToday() (WorstWound, bool) {
	key := dateKey(now().UTC())
	statsMu.Lock()
	defer statsMu.Unlock()
	w, ok := dailyWorst[key]
	return w, ok
}
