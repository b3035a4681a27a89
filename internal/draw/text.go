package draw

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/object"
	"github.com/tomz197/ciphertower/internal/tower"
)

// Gold formats an amount of gold without trailing zeros.
func Gold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "G"
}

// Preview shortens s to its first n characters followed by "...".
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Title draws the start screen.
func Title(w io.Writer) {
	fmt.Fprint(w, `
  ____ _       _               _____
 / ___(_)_ __ | |__   ___ _ __|_   _|____      _____ _ __
| |   | | '_ \| '_ \ / _ \ '__| | |/ _ \ \ /\ / / _ \ '__|
| |___| | |_) | | | |  __/ |    | | (_) \ V  V /  __/ |
 \____|_| .__/|_| |_|\___|_|    |_|\___/ \_/\_/ \___|_|
        |_|

Defend against enemies whose paths are encrypted.
Type start to play, tutorial for the basics, help for commands.
`)
}

// Tutorial draws the four tutorial steps.
func Tutorial(w io.Writer) {
	fmt.Fprint(w, `Tutorial
  1. Encrypted enemy paths
     Each wave's path is encrypted. You only see hints until you decrypt it
     with a signature from your identity.
  2. Build towers strategically
     Place towers along the predicted path to stop enemies. Each tower type
     has its own damage, range and cost.
  3. Manage resources
     Balance tower placement with upgrades. Sell towers to recover some gold.
  4. Decrypt waves
     Use signatures to decrypt wave details for better planning.
Type tutorial again to close it.
`)
}

// StatusView is the summary line content.
type StatusView struct {
	Gold      float64
	Lives     int
	Wave      int
	Waves     int
	Connected bool
}

// Status draws gold, lives, wave progress and identity state.
func Status(w io.Writer, v StatusView) {
	identity := "disconnected"
	if v.Connected {
		identity = "connected"
	}
	wave := "-"
	if v.Wave > 0 {
		wave = strconv.Itoa(v.Wave)
	}
	fmt.Fprintf(w, "Gold: %s  Lives: %d  Wave: %s/%d  Identity: %s\n",
		Gold(v.Gold), v.Lives, wave, v.Waves, identity)
}

// WaveList draws every wave with its status, hint and ciphertext preview.
func WaveList(w io.Writer, waves []object.Wave) {
	for _, wv := range waves {
		fmt.Fprintf(w, "Wave %d [%s] %s\n", wv.Number, wv.Status, wv.Hint)
		fmt.Fprintf(w, "  path: %s  composition: %s\n",
			Preview(wv.EncodedPath, config.EncodedPreview),
			Preview(wv.EncodedComposition, config.EncodedPreview))
	}
}

// IntelView is what has been revealed about one wave.
type IntelView struct {
	Wave        object.Wave
	Path        []object.Cell
	Composition []object.EnemyKind
	Decrypting  bool
	Err         string
}

// Intel draws the wave info panel: the hint, then the decrypted path and
// composition, or the ciphertext when a descriptor is still hidden.
func Intel(w io.Writer, v IntelView) {
	fmt.Fprintf(w, "Wave %d info: %s\n", v.Wave.Number, v.Wave.Hint)
	if v.Decrypting {
		fmt.Fprintln(w, "  decrypting...")
	}
	if v.Path != nil {
		cells := make([]string, len(v.Path))
		for i, c := range v.Path {
			cells[i] = c.String()
		}
		fmt.Fprintf(w, "  path: %s\n", strings.Join(cells, " "))
	} else {
		fmt.Fprintf(w, "  path: %s (encrypted)\n", Preview(v.Wave.EncodedPath, config.EncodedPreview))
	}
	if v.Composition != nil {
		counts := make(map[object.EnemyKind]int)
		for _, k := range v.Composition {
			counts[k]++
		}
		var parts []string
		for _, k := range object.EnemyKinds {
			if counts[k] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
			}
		}
		fmt.Fprintf(w, "  composition: %s\n", strings.Join(parts, ", "))
	} else {
		fmt.Fprintf(w, "  composition: %s (encrypted)\n", Preview(v.Wave.EncodedComposition, config.EncodedPreview))
	}
	if v.Err != "" {
		fmt.Fprintf(w, "  error: %s\n", v.Err)
	}
}

// Enemies draws one line per live enemy with a health bar.
func Enemies(w io.Writer, enemies []*object.Enemy) {
	for _, e := range enemies {
		fmt.Fprintf(w, "  #%d %-6s %s %3.0f/%-3.0f at %v\n",
			e.ID, e.Kind, HealthBar(e.Health, e.MaxHealth, 5), e.Health, e.MaxHealth, e.Cell)
	}
}

// Shop draws the tower types, marking the ones gold cannot cover.
func Shop(w io.Writer, gold float64) {
	for _, k := range object.TowerKinds {
		s, _ := object.BaseStats(k)
		mark := ""
		if gold < s.Cost {
			mark = "  (not enough gold)"
		}
		fmt.Fprintf(w, "  %c %-6s DMG: %g | RNG: %g | Cost: %s%s\n",
			TowerSymbol(k), k, s.Damage, s.Range, Gold(s.Cost), mark)
	}
}

// TowerDetails draws a tower with its upgrade and sell prices.
func TowerDetails(w io.Writer, t object.Tower, gold float64) {
	fmt.Fprintf(w, "Tower #%d %s at %v\n", t.ID, t.Kind, t.Cell)
	fmt.Fprintf(w, "  Level: %d  Damage: %g  Range: %g\n", t.Level, t.Damage, t.Range)
	price := tower.UpgradePrice(t)
	upgrade := "upgrade " + Gold(price)
	if gold < price {
		upgrade += " (not enough gold)"
	}
	fmt.Fprintf(w, "  %s  sell %s\n", upgrade, Gold(tower.SellRefund(t)))
}

// Towers draws one line per placed tower.
func Towers(w io.Writer, towers []object.Tower) {
	if len(towers) == 0 {
		fmt.Fprintln(w, "  no towers")
		return
	}
	for _, t := range towers {
		fmt.Fprintf(w, "  #%d %-6s L%d at %v\n", t.ID, t.Kind, t.Level, t.Cell)
	}
}

// GameOverView is the end screen content.
type GameOverView struct {
	Victory   bool
	Completed int
	Waves     int
	Towers    int
	Gold      float64
	Lives     int
}

// GameOver draws the verdict and final statistics.
func GameOver(w io.Writer, v GameOverView) {
	if v.Victory {
		fmt.Fprintln(w, "Victory!")
		fmt.Fprintln(w, "You successfully defended against all waves!")
	} else {
		fmt.Fprintln(w, "Game Over")
		fmt.Fprintln(w, "You failed to defend against all waves!")
	}
	fmt.Fprintf(w, "  Waves completed: %d/%d\n", v.Completed, v.Waves)
	fmt.Fprintf(w, "  Towers built: %d\n", v.Towers)
	fmt.Fprintf(w, "  Gold remaining: %s\n", Gold(v.Gold))
	fmt.Fprintf(w, "  Lives left: %d\n", v.Lives)
	fmt.Fprintln(w, "Type start to play again.")
}
