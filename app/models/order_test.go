package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderJSONCarriesBothIDs(t *testing.T) {
	id := primitive.NewObjectID()
	o := &Order{ID: id, OrderID: "JUSH-1-ABCD", Status: StatusPending}

	raw, err := json.Marshal(o)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, id.Hex(), doc["_id"])
	assert.Equal(t, id.Hex(), doc["id"])
	assert.Equal(t, "JUSH-1-ABCD", doc["orderId"])

	var back Order
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, id, back.ID)
}
