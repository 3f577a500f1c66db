package inbound

type DecryptSeedRequest struct {
	EncryptedSeed string `json:"encrypted_seed"`
}

type DecryptSeedResponse struct {
	Status string `json:"status"`
}

func (DecryptSeedResponse) Message() string {
	return "Seed decrypted and stored"
}

type GenerateCodeResponse struct {
	Code     string `json:"code"`
	ValidFor int    `json:"valid_for"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}
