package auth

import "github.com/jaevor/go-nanoid"

func NewRefreshToken() (string, error) {
	generateID, err := nanoid.Standard(40)
	if err != nil {
		return "", err
	}
	return generateID(), nil
}
