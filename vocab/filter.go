package vocab

import "sort"

// NormalizeLetters removes duplicate characters and returns the remainder
// sorted.
func NormalizeLetters(letters string) string {
	seen := make(map[rune]bool)
	var runes []rune
	for _, r := range letters {
		if !seen[r] {
			seen[r] = true
			runes = append(runes, r)
		}
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

// FilterWords removes words containing any character outside the letter set.
// Empty words never pass.
func FilterWords(vectors map[string][]float32, letters string) map[string][]float32 {
	allowed := make(map[rune]bool)
	for _, r := range letters {
		allowed[r] = true
	}
	out := make(map[string][]float32)
	for word, vec := range vectors {
		if word == "" {
			continue
		}
		keep := true
		for _, r := range word {
			if !allowed[r] {
				keep = false
				break
			}
		}
		if keep {
			out[word] = vec
		}
	}
	return out
}
