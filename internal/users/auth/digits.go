// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// DigitSource produces uniformly random decimal strings of a fixed length.
type DigitSource func(length int) (string, error)

// randomDigits draws from crypto/rand. Leading zeros are kept.
func randomDigits(length int) (string, error) {
	return digitsFrom(rand.Reader, length)
}

func digitsFrom(reader io.Reader, length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	value, err := rand.Int(reader, limit)
	if err != nil {
		return "", fmt.Errorf("auth_random_digits_failed: %w", err)
	}

	return fmt.Sprintf("%0*d", length, value.Int64()), nil
}
