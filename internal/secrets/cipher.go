package secrets

// PasswordCipher turns plaintext passwords into opaque authenticated tokens and back.
type PasswordCipher interface {
	EncryptPassword(password string) (Token, error)
	DecryptPassword(token Token) (string, error)
}
