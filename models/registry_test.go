package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/yolonas"
)

func TestNewModel(t *testing.T) {
	for _, name := range Names() {
		t.Run(string(name), func(t *testing.T) {
			m, err := NewModel(yolonas.DefaultArgs(name, "/models/"+string(name)+".onnx"))
			require.NoError(t, err)
			assert.Equal(t, name, m.Options().Name)
		})
	}

	_, err := NewModel(model.NewModelArgs{Name: "yolov4"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestClassSets(t *testing.T) {
	assert.Len(t, COCOClasses.Classes, 81)
	assert.Len(t, YOLOClasses.Classes, 80)

	labels := LabelsFor(model.ModelFamilyYOLO)
	require.Len(t, labels, 80)
	assert.Equal(t, "person", labels[0])
	assert.Equal(t, "toothbrush", labels[79])
	assert.Nil(t, LabelsFor("voc"))
}

func TestClassManager(t *testing.T) {
	mgr := DefaultClassManager()

	name, err := mgr.GetName(model.ModelFamilyYOLO, 2)
	require.NoError(t, err)
	assert.Equal(t, "car", name)

	idx, err := mgr.GetIndex(model.ModelFamilyCOCO, "car")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	mapped, err := mgr.MapClass(model.ModelFamilyYOLO, 0, model.ModelFamilyCOCO)
	require.NoError(t, err)
	assert.Equal(t, OutputClass{Index: 1, Name: "person"}, mapped)

	_, err = mgr.GetName(model.ModelFamilyYOLO, 80)
	assert.ErrorIs(t, err, ErrUnknownClass)
	_, err = mgr.GetIndex(model.ModelFamilyYOLO, "unicorn")
	assert.ErrorIs(t, err, ErrUnknownClass)
	_, err = mgr.GetName("voc", 0)
	assert.Error(t, err)

	custom := NewClassSet("custom", []string{"helmet", "vest"})
	assert.Equal(t, []string{"helmet", "vest"}, custom.Names())
}
