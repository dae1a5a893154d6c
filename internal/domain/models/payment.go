package models

import "strings"

// PaymentAccount реквизиты, на которые покупатель переводит оплату
type PaymentAccount struct {
	Method  PaymentMethod `yaml:"code" json:"code"`
	Title   string        `yaml:"title" json:"title"`
	Account string        `yaml:"account" json:"account"`
	Holder  string        `yaml:"holder" json:"holder"`
}

// ProofKind вид вложения с подтверждением оплаты
type ProofKind string

const (
	ProofPhoto    ProofKind = "photo"
	ProofDocument ProofKind = "document"
)

// NewProofRef ссылка на файл подтверждения вида "photo:<file_id>"
func NewProofRef(kind ProofKind, fileID string) string {
	return string(kind) + ":" + fileID
}

// SplitProofRef разбирает ссылку; без известного префикса вид пустой
func SplitProofRef(ref string) (ProofKind, string) {
	kind, fileID, ok := strings.Cut(ref, ":")
	if !ok {
		return "", ref
	}
	switch ProofKind(kind) {
	case ProofPhoto, ProofDocument:
		return ProofKind(kind), fileID
	}
	return "", ref
}
