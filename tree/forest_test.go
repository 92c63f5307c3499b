package tree

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dododo1295/notetree/model"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func note(id string, parent string, order float64, createdOffset int) *model.Note {
	n := &model.Note{
		ID:        id,
		UserID:    "owner",
		Title:     "note " + id,
		Order:     order,
		CreatedAt: base.Add(time.Duration(createdOffset) * time.Second),
	}
	if parent != "" {
		n.ParentID = model.StringPtr(parent)
	}
	return n
}

// shape flattens a forest into "depth:id" entries in display order.
func shape(forest []*Node) []string {
	var out []string
	Walk(forest, func(n *Node, depth int) bool {
		out = append(out, string(rune('0'+depth))+":"+n.ID)
		return true
	})
	return out
}

func TestBuildForestEmpty(t *testing.T) {
	forest := BuildForest(nil, nil)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestBuildForestSiblingOrder(t *testing.T) {
	notes := []*model.Note{
		note("c", "", 3, 0),
		note("a", "", 1, 0),
		note("b", "", 2, 0),
	}

	forest := BuildForest(notes, nil)

	require.Len(t, forest, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{forest[0].Order, forest[1].Order, forest[2].Order})
	for _, n := range forest {
		assert.NotNil(t, n.Children)
		assert.Empty(t, n.Children)
	}
}

func TestBuildForestTieBreaks(t *testing.T) {
	notes := []*model.Note{
		note("z", "", 5, 2),
		note("y", "", 5, 1),
		note("x2", "", 5, 1),
	}

	forest := BuildForest(notes, nil)

	// equal order falls back to createdAt, then id
	assert.Equal(t, []string{"0:x2", "0:y", "0:z"}, shape(forest))
}

func TestBuildForestNesting(t *testing.T) {
	notes := []*model.Note{
		note("root", "", 1, 0),
		note("child-b", "root", 2, 1),
		note("child-a", "root", 1, 2),
		note("grandchild", "child-a", 1, 3),
		note("other-root", "", 0, 4),
	}

	forest := BuildForest(notes, nil)

	assert.Equal(t, []string{
		"0:other-root",
		"0:root",
		"1:child-a",
		"2:grandchild",
		"1:child-b",
	}, shape(forest))
	assert.Equal(t, 5, Count(forest))
}

func TestBuildForestSubtree(t *testing.T) {
	notes := []*model.Note{
		note("root", "", 1, 0),
		note("child", "root", 1, 1),
		note("leaf", "child", 1, 2),
	}

	forest := BuildForest(notes, model.StringPtr("root"))

	assert.Equal(t, []string{"0:child", "1:leaf"}, shape(forest))
}

func TestBuildForestDeterministicAcrossPermutations(t *testing.T) {
	notes := []*model.Note{
		note("a", "", 1, 0),
		note("b", "", 1, 0),
		note("c", "a", 2, 1),
		note("d", "a", 2, 1),
		note("e", "c", 0, 2),
		note("f", "", -1, 3),
		note("g", "missing", 1, 4),
	}
	want := shape(BuildForest(notes, nil))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]*model.Note(nil), notes...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, shape(BuildForest(shuffled, nil)))
	}
}

func TestBuildForestDanglingParentIsInvisible(t *testing.T) {
	notes := []*model.Note{
		note("a", "", 1, 0),
		note("orphan", "deleted-parent", 1, 1),
		note("orphan-child", "orphan", 1, 2),
	}

	forest := BuildForest(notes, nil)

	assert.Equal(t, []string{"0:a"}, shape(forest))
	assert.Nil(t, Find(forest, "orphan"))
	// the orphan's own subtree is unreachable too
	assert.Nil(t, Find(forest, "orphan-child"))
	assert.Equal(t, 1, Count(forest))
}

func TestBuildForestCycleDoesNotLoop(t *testing.T) {
	notes := []*model.Note{
		note("root", "", 1, 0),
		note("a", "b", 1, 1),
		note("b", "a", 1, 2),
		note("self", "self", 1, 3),
	}

	done := make(chan []*Node)
	go func() { done <- BuildForest(notes, nil) }()

	select {
	case forest := <-done:
		assert.Equal(t, []string{"0:root"}, shape(forest))
	case <-time.After(2 * time.Second):
		t.Fatal("BuildForest did not terminate on cyclic input")
	}
}

func TestBuildForestDuplicateIDsPlacedOnce(t *testing.T) {
	notes := []*model.Note{
		note("x", "", 1, 0),
		note("x", "x", 1, 1),
	}

	forest := BuildForest(notes, nil)

	assert.Equal(t, 1, Count(forest))
}

func TestBuildForestDoesNotAliasInput(t *testing.T) {
	n := note("a", "", 1, 0)
	n.Tags = []string{"one"}

	forest := BuildForest([]*model.Note{n}, nil)
	forest[0].Tags[0] = "changed"
	forest[0].Title = "changed"

	assert.Equal(t, "one", n.Tags[0])
	assert.Equal(t, "note a", n.Title)
}

func TestFind(t *testing.T) {
	forest := BuildForest([]*model.Note{
		note("a", "", 1, 0),
		note("b", "a", 1, 1),
	}, nil)

	found := Find(forest, "b")
	require.NotNil(t, found)
	assert.Equal(t, "a", *found.ParentID)
	assert.Nil(t, Find(forest, "nope"))
}
