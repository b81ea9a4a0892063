package subscan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
)

const alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func TestRewardsSlashes(t *testing.T) {
	var got rewardSlashRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, rewardSlashPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"code":0,"message":"Success","data":{"count":4,"list":[
			{"era":1200,"amount":"1234567890","block_timestamp":1650000000,"event_id":"Reward"},
			{"era":1199,"amount":"not-a-number","block_timestamp":1649900000,"event_id":"Reward"},
			{"era":1198,"amount":"42","block_timestamp":1649800000,"event_id":"Slash"},
			{"era":"1197","amount":7000,"block_timestamp":"1649700000","event_id":"Reward"}
		]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", zerolog.New(zerolog.NewTestWriter(t)), WithAPIKey("secret"))
	rewards, err := c.RewardsSlashes(context.Background(), alice, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, rewardSlashRequest{Row: 10, Page: 0, Address: alice}, got)
	require.Len(t, rewards, 3)
	assert.Equal(t, uint32(1200), rewards[0].Era)
	assert.Equal(t, "1234567890", rewards[0].Reward.String())
	assert.Equal(t, int64(1650000000), rewards[0].TimeStamp)
	assert.Equal(t, "Slash", rewards[1].Event)
	assert.Equal(t, uint32(1197), rewards[2].Era)
	assert.Equal(t, "7000", rewards[2].Reward.String())
	assert.Equal(t, int64(1649700000), rewards[2].TimeStamp)
}

func TestRewardsSlashesErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    stakingerrors.ErrorCode
		row     int
		noServe bool
	}{
		{name: "api error code", status: http.StatusOK, body: `{"code":10004,"message":"Record Not Found"}`, code: stakingerrors.ErrCodeRPC, row: 10},
		{name: "http error", status: http.StatusInternalServerError, body: `oops`, code: stakingerrors.ErrCodeRPC, row: 10},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, code: stakingerrors.ErrCodeNetwork, row: 10},
		{name: "malformed json", status: http.StatusOK, body: `{`, code: stakingerrors.ErrCodeDecode, row: 10},
		{name: "row too large", code: stakingerrors.ErrCodeValidation, row: MaxRows + 1, noServe: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.noServe {
					t.Error("request should not be sent")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, zerolog.Nop()).RewardsSlashes(context.Background(), alice, 0, tt.row)
			require.Error(t, err)
			assert.True(t, stakingerrors.IsStakingError(err, tt.code), "got %v", err)
		})
	}
}

func TestRewardsSlashesCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, zerolog.Nop()).RewardsSlashes(ctx, alice, 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
