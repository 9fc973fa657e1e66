package ports

// SecurityPort encrypts and decrypts sensitive fields (phone numbers,
// withdrawal payment details) before they reach the store. Keeping it
// behind an interface lets the cipher be swapped without touching the
// repositories.
type SecurityPort interface {
	Encrypt(plaintext []byte) (ciphertext []byte, err error)
	Decrypt(ciphertext []byte) (plaintext []byte, err error)

	// EncryptString and DecryptString wrap the byte operations with the
	// base64 encoding used for text columns.
	EncryptString(plaintext string) (string, error)
	DecryptString(encoded string) (string, error)
}
