package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, tokens ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func newTestTokenizer(t *testing.T, maxSeq int) *wordpieceTokenizer {
	t.Helper()
	// IDs follow line order: [CLS]=0 [SEP]=1 [UNK]=2 ...
	path := writeVocab(t,
		"[CLS]", "[SEP]", "[UNK]",
		"hello", "world", "!", "un", "##believ", "##able",
	)
	tok, err := loadTokenizer(path, maxSeq)
	require.NoError(t, err)
	return tok
}

func TestEncodeLowercasesAndSplitsPunctuation(t *testing.T) {
	tok := newTestTokenizer(t, 256)

	ids := tok.Encode("Hello WORLD!")
	assert.Equal(t, []int64{0, 3, 4, 5, 1}, ids)
}

func TestEncodeGreedyWordPieces(t *testing.T) {
	tok := newTestTokenizer(t, 256)

	ids := tok.Encode("unbelievable")
	assert.Equal(t, []int64{0, 6, 7, 8, 1}, ids)
}

func TestEncodeUnknownWord(t *testing.T) {
	tok := newTestTokenizer(t, 256)

	ids := tok.Encode("zzz hello")
	assert.Equal(t, []int64{0, 2, 3, 1}, ids)
}

func TestEncodeTruncatesToMaxSequence(t *testing.T) {
	tok := newTestTokenizer(t, 5)

	ids := tok.Encode("hello world hello world hello")
	require.Len(t, ids, 5)
	assert.Equal(t, int64(0), ids[0])
	assert.Equal(t, int64(1), ids[len(ids)-1])
}

func TestLoadTokenizerRejectsIncompleteVocab(t *testing.T) {
	path := writeVocab(t, "hello", "world")

	_, err := loadTokenizer(path, 256)
	require.Error(t, err)
}
