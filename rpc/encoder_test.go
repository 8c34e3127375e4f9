package rpc

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJsonEncoderEncode(t *testing.T) {
	buffer := bytes.NewBufferString("")

	err := JsonEncoder{}.Encode(buffer, map[string]string{
		"key_id":          "k1",
		"encrypted_value": "enc:AES256:k1:QQ==",
	})
	assert.Nil(t, err)

	p, err := ioutil.ReadAll(buffer)
	assert.Nil(t, err)
	assert.Equal(t, "{\"encrypted_value\":\"enc:AES256:k1:QQ==\",\"key_id\":\"k1\"}\n", string(p))
}

func TestJsonEncoderEncodeError(t *testing.T) {
	buffer := bytes.NewBufferString("")

	err := JsonEncoder{}.Encode(buffer, Error{
		ErrorCode:   2000,
		Description: "Invalid parameter provided.",
	})
	assert.Nil(t, err)
	assert.Equal(t, "{\"errorCode\":2000,\"description\":\"Invalid parameter provided.\"}\n", buffer.String())
}
