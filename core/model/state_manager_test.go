package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

func TestStateManager_Lifecycle(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("DecisionTreeClassifier", "Predict")
	require.Error(t, err)
	assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))

	s.SetDimensions(4, 100)
	s.SetFitted()
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFeatures("DecisionTreeClassifier", "Predict", 4))

	err = s.RequireFeatures("DecisionTreeClassifier", "Predict", 3)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
	assert.Contains(t, err.Error(), "n_features = 3 doesn't match the expected value 4")

	s.Reset()
	assert.False(t, s.IsFitted())
	nf, ns := s.GetDimensions()
	assert.Zero(t, nf)
	assert.Zero(t, ns)
}

func TestStateManager_State(t *testing.T) {
	s := NewStateManager()
	s.SetState(ModelState{Fitted: true, NFeatures: 2, NSamples: 9})
	assert.Equal(t, ModelState{Fitted: true, NFeatures: 2, NSamples: 9}, s.GetState())
}

type stubModel struct {
	Name  string
	State *StateManager
}

func TestPersistence_RoundTrip(t *testing.T) {
	in := stubModel{Name: "tree", State: NewStateManager()}
	in.State.SetDimensions(3, 10)
	in.State.SetFitted()

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&in, &buf))

	var out stubModel
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, "tree", out.Name)
	assert.True(t, out.State.IsFitted())

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveModel(&in, path))
	var fromFile stubModel
	require.NoError(t, LoadModel(&fromFile, path))
	assert.Equal(t, in.State.GetState(), fromFile.State.GetState())

	assert.Error(t, LoadModel(&fromFile, filepath.Join(t.TempDir(), "missing.gob")))
	assert.Equal(t, errors.KindInvalidPointer, errors.KindOf(SaveModelToWriter(nil, &buf)))
}
