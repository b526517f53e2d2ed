package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const (
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	unkToken = "[UNK]"

	maxWordPieceChars = 100
)

// wordpieceTokenizer implements the uncased BERT WordPiece scheme used by
// all-MiniLM-L6-v2: lowercase, punctuation split into standalone tokens,
// greedy longest-match subwords with "##" continuations.
type wordpieceTokenizer struct {
	vocab  map[string]int64
	clsID  int64
	sepID  int64
	unkID  int64
	maxSeq int
}

func loadTokenizer(vocabPath string, maxSeq int) (*wordpieceTokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("open vocab failed: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r\n")
		vocab[token] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab failed: %w", err)
	}

	t := &wordpieceTokenizer{vocab: vocab, maxSeq: maxSeq}
	var ok bool
	if t.clsID, ok = vocab[clsToken]; !ok {
		return nil, fmt.Errorf("vocab is missing %s", clsToken)
	}
	if t.sepID, ok = vocab[sepToken]; !ok {
		return nil, fmt.Errorf("vocab is missing %s", sepToken)
	}
	if t.unkID, ok = vocab[unkToken]; !ok {
		return nil, fmt.Errorf("vocab is missing %s", unkToken)
	}
	return t, nil
}

// Encode converts text into token IDs wrapped in [CLS]/[SEP], truncated to
// the configured maximum sequence length.
func (t *wordpieceTokenizer) Encode(text string) []int64 {
	ids := []int64{t.clsID}
	budget := t.maxSeq - 2

	for _, word := range splitWords(text) {
		if len(ids)-1 >= budget {
			break
		}
		pieces := t.wordToPieces(word)
		for _, id := range pieces {
			if len(ids)-1 >= budget {
				break
			}
			ids = append(ids, id)
		}
	}

	return append(ids, t.sepID)
}

func (t *wordpieceTokenizer) wordToPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordPieceChars {
		return []int64{t.unkID}
	}

	var ids []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		var matched int64 = -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				matched = id
				break
			}
			end--
		}
		if matched < 0 {
			// One unmatchable span makes the whole word unknown.
			return []int64{t.unkID}
		}
		ids = append(ids, matched)
		start = end
	}
	return ids
}

// splitWords lowercases the input and splits it on whitespace, with each
// punctuation rune emitted as its own word.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}
