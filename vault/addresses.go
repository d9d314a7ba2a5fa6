// ABOUTME: Derives Sei (bech32) and Ethereum (EIP-55) accounts from a BIP39 mnemonic.
// ABOUTME: Uses BIP44 paths m/44'/118'/0'/0/0 and m/44'/60'/0'/0/0 respectively.
package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos address format requires RIPEMD-160
	"golang.org/x/crypto/sha3"
)

const (
	SeiCoinType = 118
	EthCoinType = 60
	SeiHRP      = "sei"
)

// ChainAccount is one public address and its public key encoding.
type ChainAccount struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// Addresses is the pair of accounts shown to the user.
type Addresses struct {
	Sei ChainAccount `json:"sei"`
	Eth ChainAccount `json:"eth"`
}

// AddressDeriver turns a mnemonic into public addresses.
type AddressDeriver interface {
	DeriveAddresses(mnemonic string) (Addresses, error)
}

// HDDeriver derives addresses with BIP32 over secp256k1.
type HDDeriver struct{}

// DeriveAddresses implements AddressDeriver.
func (HDDeriver) DeriveAddresses(mnemonic string) (Addresses, error) {
	seed, err := SeedFromMnemonic(mnemonic)
	if err != nil {
		return Addresses{}, err
	}
	defer zero(seed)

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return Addresses{}, fmt.Errorf("master key: %w", err)
	}
	defer master.Zero()

	sei, err := seiAccount(master)
	if err != nil {
		return Addresses{}, err
	}
	eth, err := ethAccount(master)
	if err != nil {
		return Addresses{}, err
	}
	return Addresses{Sei: sei, Eth: eth}, nil
}

func deriveBIP44(master *hdkeychain.ExtendedKey, coin uint32) (*hdkeychain.ExtendedKey, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + coin,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	k := master
	for _, idx := range path {
		next, err := k.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive coin %d: %w", coin, err)
		}
		k = next
	}
	return k, nil
}

func accountKey(master *hdkeychain.ExtendedKey, coin uint32) (*btcec.PublicKey, error) {
	k, err := deriveBIP44(master, coin)
	if err != nil {
		return nil, err
	}
	defer k.Zero()
	return k.ECPubKey()
}

func seiAccount(master *hdkeychain.ExtendedKey) (ChainAccount, error) {
	pub, err := accountKey(master, SeiCoinType)
	if err != nil {
		return ChainAccount{}, err
	}
	addr, err := seiAddress(pub)
	if err != nil {
		return ChainAccount{}, err
	}
	return ChainAccount{
		Address:   addr,
		PublicKey: base64.StdEncoding.EncodeToString(pub.SerializeCompressed()),
	}, nil
}

func ethAccount(master *hdkeychain.ExtendedKey) (ChainAccount, error) {
	pub, err := accountKey(master, EthCoinType)
	if err != nil {
		return ChainAccount{}, err
	}
	return ChainAccount{
		Address:   ethAddress(pub),
		PublicKey: "0x" + hex.EncodeToString(pub.SerializeUncompressed()),
	}, nil
}

// seiAddress is bech32("sei", ripemd160(sha256(compressed key))).
func seiAddress(pub *btcec.PublicKey) (string, error) {
	sh := sha256.Sum256(pub.SerializeCompressed())
	rh := ripemd160.New()
	rh.Write(sh[:])
	data, err := bech32.ConvertBits(rh.Sum(nil), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(SeiHRP, data)
}

func ethAddress(pub *btcec.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	return checksumAddress(h.Sum(nil)[12:])
}

// CheckAddresses reports ErrAddressMismatch unless each address is the one
// its public key encodes.
func CheckAddresses(a Addresses) error {
	raw, err := base64.StdEncoding.DecodeString(a.Sei.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: sei public key: %v", ErrAddressMismatch, err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("%w: sei public key: %v", ErrAddressMismatch, err)
	}
	if got, err := seiAddress(pub); err != nil || got != a.Sei.Address {
		return fmt.Errorf("%w: sei address", ErrAddressMismatch)
	}

	raw, err = hex.DecodeString(strings.TrimPrefix(a.Eth.PublicKey, "0x"))
	if err != nil {
		return fmt.Errorf("%w: eth public key: %v", ErrAddressMismatch, err)
	}
	pub, err = btcec.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("%w: eth public key: %v", ErrAddressMismatch, err)
	}
	if ethAddress(pub) != a.Eth.Address {
		return fmt.Errorf("%w: eth address", ErrAddressMismatch)
	}
	return nil
}

// checksumAddress applies EIP-55 mixed-case encoding.
func checksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && nibble >= 8 {
			b.WriteRune(c - 32)
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
