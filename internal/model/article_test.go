package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusBits_Transitions(t *testing.T) {
	var b StatusBits

	assert.Equal(t, StatusUnread, b.Status())

	b = b.WithStatus(StatusNew)
	assert.Equal(t, StatusNew, b.Status())
	assert.Zero(t, b&BitRead)

	b = b.WithKeep(true).WithStatus(StatusRead)
	assert.Equal(t, StatusRead, b.Status())
	assert.Zero(t, b&BitNew)
	assert.True(t, b.Keep(), "keep survives status changes")

	b = b.WithStatus(StatusUnread)
	assert.Equal(t, StatusUnread, b.Status())
	assert.Zero(t, b&(BitNew|BitRead))

	b = b.WithKeep(false)
	assert.False(t, b.Keep())
}

func TestStatusBits_ReadWinsOverNew(t *testing.T) {
	assert.Equal(t, StatusRead, (BitNew | BitRead).Status())
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusUnread, StatusRead, StatusNew} {
		got, ok := ParseStatus(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStatus("archived")
	assert.False(t, ok)
}

func TestLess_NaturalOrder(t *testing.T) {
	t0 := time.Unix(1000, 0)
	list := []Summary{
		{GUID: "b", PubDate: t0},
		{GUID: "c", PubDate: t0.Add(time.Hour)},
		{GUID: "a", PubDate: t0},
	}
	sort.Slice(list, func(i, j int) bool { return Less(list[i], list[j]) })

	assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].GUID, list[1].GUID, list[2].GUID})
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := &Record{GUID: "g", Tags: []string{"x"}, Enclosure: &Enclosure{URL: "u"}}
	c := r.Clone()
	c.Tags[0] = "y"
	c.Enclosure.URL = "v"

	assert.Equal(t, "x", r.Tags[0])
	assert.Equal(t, "u", r.Enclosure.URL)
}
