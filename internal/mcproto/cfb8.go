package mcproto

import (
	"bufio"
	"crypto/cipher"
)

// cfb8 implements the 8-bit cipher feedback mode the Minecraft protocol
// negotiates after the encryption response. The standard library only
// ships full-block CFB, so the byte-at-a-time variant lives here.
type cfb8 struct {
	block   cipher.Block
	iv      []byte
	scratch []byte
	decrypt bool
}

func newCFB8(block cipher.Block, iv []byte, decrypt bool) *cfb8 {
	c := &cfb8{
		block:   block,
		iv:      make([]byte, block.BlockSize()),
		scratch: make([]byte, block.BlockSize()),
		decrypt: decrypt,
	}
	copy(c.iv, iv)
	return c
}

func (c *cfb8) XORKeyStream(dst, src []byte) {
	for i, b := range src {
		c.block.Encrypt(c.scratch, c.iv)
		out := b ^ c.scratch[0]

		feedback := out
		if c.decrypt {
			feedback = b
		}
		copy(c.iv, c.iv[1:])
		c.iv[len(c.iv)-1] = feedback

		dst[i] = out
	}
}

// cipherReader decrypts a wrapped reader through a keystream.
type cipherReader struct {
	r      *bufio.Reader
	stream *cfb8
}

func (c *cipherReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.stream.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}
