package pngopt

import "hash/adler32"

// adler32Checksum computes the Adler-32 checksum PNG's zlib-wrapped IDAT
// stream requires as its trailer. Adler-32 is an external collaborator
// the core encoder consumes rather than implements; the standard
// library's hash/adler32 fills that role here.
func adler32Checksum(data []byte) uint32 {
	return adler32.Checksum(data)
}
