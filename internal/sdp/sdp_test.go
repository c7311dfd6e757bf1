package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const announceBody = "v=0\r\n" +
	"o=iTunes 3128224617 0 IN IP4 192.0.2.1\r\n" +
	"s=iTunes\r\n" +
	"c=IN IP4 192.0.2.1\r\n" +
	"t=0 0\r\n" +
	"m=audio 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 AppleLossless\r\n" +
	"a=fmtp:96 352 0 16 40 10 14 2 255 0 0 44100\r\n" +
	"a=min-latency:11025\r\n" +
	"a=max-latency:88200\r\n" +
	"a=rsaaeskey:AAECAwQFBgcICQoLDA0ODw\r\n" +
	"a=aesiv:AAECAwQFBgcICQoLDA0ODw\r\n"

func TestParseExtractsAllFields(t *testing.T) {
	ann, err := Parse([]byte(announceBody))
	require.NoError(t, err)
	assert.Equal(t, "352 0 16 40 10 14 2 255 0 0 44100", ann.Fmtp)
	assert.Equal(t, 11025, ann.MinLatency)
	assert.Equal(t, 88200, ann.MaxLatency)
	assert.Len(t, ann.AESIV, 16)
	assert.Len(t, ann.AESKeyEnc, 16)
}

func TestParseMissingMediaSectionFails(t *testing.T) {
	_, err := Parse([]byte("v=0\r\no=x\r\n"))
	assert.Error(t, err)
}

func TestParseToleratesMissingOptionalFields(t *testing.T) {
	body := "v=0\r\nm=audio 0 RTP/AVP 96\r\na=fmtp:96 352 0 16\r\n"
	ann, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "352 0 16", ann.Fmtp)
	assert.Equal(t, 0, ann.MinLatency)
	assert.Nil(t, ann.AESIV)
	assert.Nil(t, ann.AESKeyEnc)
}
