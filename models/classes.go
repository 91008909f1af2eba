// Package models - Class sets and the model registry.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/models/model"
)

// ErrUnknownClass is returned for class lookups that miss.
var ErrUnknownClass = errors.New("unknown class")

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	// Family the labels belong to.
	Family model.Family
	// Classes that are supported and mappable.
	Classes []OutputClass
}

// Names returns the labels ordered by index, suitable for yolonas.WithLabels.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// NewClassSet builds a zero-based class set from an ordered list of names.
func NewClassSet(family model.Family, names []string) *OutputClassSet {
	set := &OutputClassSet{Family: family, Classes: make([]OutputClass, len(names))}
	for i, n := range names {
		set.Classes[i] = OutputClass{Index: i, Name: n}
	}
	return set
}

// ClassManager holds all registered class sets.
type ClassManager struct {
	sets      map[model.Family]*OutputClassSet
	nameToIdx map[model.Family]map[string]int
}

// NewClassManager initializes and registers the given sets.
func NewClassManager(allSets ...*OutputClassSet) *ClassManager {
	mgr := &ClassManager{
		sets:      make(map[model.Family]*OutputClassSet),
		nameToIdx: make(map[model.Family]map[string]int),
	}
	for _, set := range allSets {
		idx := make(map[string]int, len(set.Classes))
		for _, c := range set.Classes {
			idx[c.Name] = c.Index
		}
		mgr.sets[set.Family] = set
		mgr.nameToIdx[set.Family] = idx
	}
	return mgr
}

// DefaultClassManager registers the COCO and YOLO label sets.
func DefaultClassManager() *ClassManager {
	return NewClassManager(&COCOClasses, &YOLOClasses)
}

// Set returns the class set registered for a family.
func (m *ClassManager) Set(family model.Family) (*OutputClassSet, error) {
	set, ok := m.sets[family]
	if !ok {
		return nil, errors.Errorf("family %q not registered", family)
	}
	return set, nil
}

// GetName returns the class name for a given family and index.
func (m *ClassManager) GetName(family model.Family, idx int) (string, error) {
	set, err := m.Set(family)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(set.Classes) {
		return "", errors.Wrapf(ErrUnknownClass, "index %d out of range for family %q", idx, family)
	}
	return set.Classes[idx].Name, nil
}

// GetIndex returns the class index for a given family and name.
func (m *ClassManager) GetIndex(family model.Family, name string) (int, error) {
	if _, err := m.Set(family); err != nil {
		return -1, err
	}
	idx, ok := m.nameToIdx[family][name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownClass, "name %q not found in family %q", name, family)
	}
	return idx, nil
}

// MapClass maps an index from one family to another by name.
func (m *ClassManager) MapClass(from model.Family, idx int, to model.Family) (OutputClass, error) {
	name, err := m.GetName(from, idx)
	if err != nil {
		return OutputClass{}, err
	}
	toIdx, err := m.GetIndex(to, name)
	if err != nil {
		return OutputClass{}, err
	}
	return OutputClass{Index: toIdx, Name: name}, nil
}

var COCOClasses = OutputClassSet{
	Family: model.ModelFamilyCOCO,
	Classes: []OutputClass{
		{0, "__background__"},
		{1, "person"},
		{2, "bicycle"},
		{3, "car"},
		{4, "motorcycle"},
		{5, "airplane"},
		{6, "bus"},
		{7, "train"},
		{8, "truck"},
		{9, "boat"},
		{10, "traffic light"},
		{11, "fire hydrant"},
		{12, "stop sign"},
		{13, "parking meter"},
		{14, "bench"},
		{15, "bird"},
		{16, "cat"},
		{17, "dog"},
		{18, "horse"},
		{19, "sheep"},
		{20, "cow"},
		{21, "elephant"},
		{22, "bear"},
		{23, "zebra"},
		{24, "giraffe"},
		{25, "backpack"},
		{26, "umbrella"},
		{27, "handbag"},
		{28, "tie"},
		{29, "suitcase"},
		{30, "frisbee"},
		{31, "skis"},
		{32, "snowboard"},
		{33, "sports ball"},
		{34, "kite"},
		{35, "baseball bat"},
		{36, "baseball glove"},
		{37, "skateboard"},
		{38, "surfboard"},
		{39, "tennis racket"},
		{40, "bottle"},
		{41, "wine glass"},
		{42, "cup"},
		{43, "fork"},
		{44, "knife"},
		{45, "spoon"},
		{46, "bowl"},
		{47, "banana"},
		{48, "apple"},
		{49, "sandwich"},
		{50, "orange"},
		{51, "broccoli"},
		{52, "carrot"},
		{53, "hot dog"},
		{54, "pizza"},
		{55, "donut"},
		{56, "cake"},
		{57, "chair"},
		{58, "couch"},
		{59, "potted plant"},
		{60, "bed"},
		{61, "dining table"},
		{62, "toilet"},
		{63, "tv"},
		{64, "laptop"},
		{65, "mouse"},
		{66, "remote"},
		{67, "keyboard"},
		{68, "cell phone"},
		{69, "microwave"},
		{70, "oven"},
		{71, "toaster"},
		{72, "sink"},
		{73, "refrigerator"},
		{74, "book"},
		{75, "clock"},
		{76, "vase"},
		{77, "scissors"},
		{78, "teddy bear"},
		{79, "hair drier"},
		{80, "toothbrush"},
	},
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO-NAS indexes directly into this zero-based list.
var YOLOClasses = OutputClassSet{
	Family: model.ModelFamilyYOLO,
	Classes: func() []OutputClass {
		classes := make([]OutputClass, len(COCOClasses.Classes)-1) // drop background
		for i := 1; i < len(COCOClasses.Classes); i++ {
			classes[i-1] = OutputClass{i - 1, COCOClasses.Classes[i].Name}
		}
		return classes
	}(),
}
