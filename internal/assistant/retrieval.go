package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/klinik-awan/internal/scheduling"
)

// Intent names the retrieval category a question matched.
type Intent string

const (
	IntentNone         Intent = ""
	IntentDoctorList   Intent = "doctor_list"
	IntentSymptom      Intent = "symptom"
	IntentClinicInfo   Intent = "clinic_info"
	IntentCapabilities Intent = "capabilities"
)

var (
	doctorListKeywords = []string{"daftar dokter", "dokter siapa", "dokter yang tersedia"}

	dentalKeywords    = []string{"sakit gigi", "gigi", "dokter gigi"}
	generalKeywords   = []string{"sakit kepala", "demam", "flu", "batuk", "pilek"}
	pediatricKeywords = []string{"anak", "bayi", "bayi saya"}

	clinicInfoKeywords = []string{
		"alamat klinik", "lokasi klinik", "info klinik", "kontak klinik",
		"nomor telepon klinik", "jam buka klinik", "klinik awan",
	}
	capabilityKeywords = []string{
		"bisa apa", "fungsi", "kemampuan", "fitur", "apa saja",
		"tentang kamu", "tentang chatbot", "kamu bisa apa",
	}
)

// DoctorSource is the read side of the scheduling engine the retriever
// consults.
type DoctorSource interface {
	ListDoctors(ctx context.Context, specialty string) ([]scheduling.Doctor, error)
}

// ClinicInfo is the fixed clinic block injected for clinic questions.
type ClinicInfo struct {
	Name    string
	Address string
	Phone   string
	Hours   string
}

// DefaultClinicInfo returns the clinic details used when none are configured.
func DefaultClinicInfo() ClinicInfo {
	return ClinicInfo{
		Name:    "Klinik Awan",
		Address: "Jalan Merdeka No. 123, Semarang, Jawa Tengah.",
		Phone:   "(024) 12345678",
		Hours:   "Senin - Jumat, 08:00 - 20:00; Sabtu, 09:00 - 17:00; Minggu Tutup.",
	}
}

// Prompt is the text sent to the completer plus what produced it.
type Prompt struct {
	Text      string
	Intent    Intent
	Specialty string
}

// Retriever picks a small context for a question with a fixed keyword
// policy. The first matching category wins.
type Retriever struct {
	doctors DoctorSource
	clinic  ClinicInfo
}

func NewRetriever(doctors DoctorSource, clinic ClinicInfo) *Retriever {
	if doctors == nil {
		panic("assistant: doctor source required")
	}
	defaults := DefaultClinicInfo()
	if strings.TrimSpace(clinic.Name) == "" {
		clinic.Name = defaults.Name
	}
	if strings.TrimSpace(clinic.Address) == "" {
		clinic.Address = defaults.Address
	}
	if strings.TrimSpace(clinic.Phone) == "" {
		clinic.Phone = defaults.Phone
	}
	if strings.TrimSpace(clinic.Hours) == "" {
		clinic.Hours = defaults.Hours
	}
	return &Retriever{doctors: doctors, clinic: clinic}
}

// Classify reports the intent and, for symptom questions, the specialty a
// question maps to. Matching is case-insensitive substring search.
func Classify(question string) (Intent, string) {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, doctorListKeywords):
		return IntentDoctorList, ""
	case containsAny(q, dentalKeywords):
		return IntentSymptom, scheduling.SpecialtyDental
	case containsAny(q, generalKeywords):
		return IntentSymptom, scheduling.SpecialtyGeneral
	case containsAny(q, pediatricKeywords):
		return IntentSymptom, scheduling.SpecialtyPediatric
	case containsAny(q, clinicInfoKeywords):
		return IntentClinicInfo, ""
	case containsAny(q, capabilityKeywords):
		return IntentCapabilities, ""
	}
	return IntentNone, ""
}

// Build assembles the prompt: base instruction, the question, the intent's
// instruction, then the retrieved context.
func (r *Retriever) Build(ctx context.Context, question string) (Prompt, error) {
	intent, specialty := Classify(question)

	var b strings.Builder
	b.WriteString(r.baseInstruction())
	b.WriteString("\n\nPertanyaan pengguna: ")
	b.WriteString(question)
	b.WriteString("\n")

	var instruction, block string
	switch intent {
	case IntentDoctorList:
		doctors, err := r.doctors.ListDoctors(ctx, "")
		if err != nil {
			return Prompt{}, fmt.Errorf("assistant: retrieve doctors: %w", err)
		}
		if len(doctors) > 0 {
			block = "\nInformasi Dokter dari database:\n" + doctorLines(doctors)
			instruction = "\nBerdasarkan informasi dokter di atas, berikan daftar dokter yang tersedia dalam format poin-poin yang jelas (misalnya: - Nama: dr. [Nama], Spesialisasi: [Spesialisasi])."
		} else {
			block = "\n\nInformasi Dokter dari database: Saat ini tidak ditemukan data dokter yang terdaftar."
			instruction = "\nBerdasarkan informasi di atas, beritahu pengguna bahwa saat ini tidak ada dokter yang terdaftar dalam sistem."
		}

	case IntentSymptom:
		doctors, err := r.doctors.ListDoctors(ctx, specialty)
		if err != nil {
			return Prompt{}, fmt.Errorf("assistant: retrieve %s doctors: %w", specialty, err)
		}
		if len(doctors) > 0 {
			block = fmt.Sprintf("\nInformasi Dokter Spesialis %s dari database:\n", specialty) + doctorLines(doctors)
			instruction = fmt.Sprintf("\nBerdasarkan informasi dokter di atas, jika pengguna memiliki keluhan terkait %s, rekomendasikan dokter yang cocok. Berikan nama dan spesialisasi dokter tersebut dalam format poin-poin yang jelas (misalnya: - Nama: dr. [Nama], Spesialisasi: [Spesialisasi]). Jika tidak ada dokter yang cocok, katakan maaf.", strings.ToLower(specialty))
		} else {
			block = fmt.Sprintf("\n\nInformasi Dokter Spesialis %s dari database: Saat ini tidak ditemukan dokter spesialis %s yang terdaftar.", specialty, specialty)
			instruction = fmt.Sprintf("\nBerdasarkan informasi di atas, beritahu pengguna bahwa saat ini tidak ada dokter spesialis %s yang terdaftar dalam sistem.", specialty)
		}

	case IntentClinicInfo:
		block = fmt.Sprintf("\nInformasi Detail %s:\nAlamat: %s\nNomor Telepon: %s\nJam Buka: %s\n",
			r.clinic.Name, r.clinic.Address, r.clinic.Phone, r.clinic.Hours)
		instruction = fmt.Sprintf("\nBerdasarkan informasi di atas, berikan detail alamat, nomor telepon, dan jam buka %s kepada pengguna.", r.clinic.Name)

	case IntentCapabilities:
		block = r.capabilitiesBlock()
		instruction = fmt.Sprintf("\nBerdasarkan informasi di atas, jelaskan kepada pengguna apa saja yang bisa Anda lakukan sebagai Chatbot Asisten %s dalam format poin-poin yang mudah dimengerti.", r.clinic.Name)
	}

	b.WriteString(instruction)
	b.WriteString(block)
	return Prompt{Text: b.String(), Intent: intent, Specialty: specialty}, nil
}

func (r *Retriever) baseInstruction() string {
	return fmt.Sprintf("Anda adalah asisten virtual untuk %s. Jawab pertanyaan pengguna HANYA berdasarkan informasi yang saya berikan. Jika informasi tidak tersedia dalam data yang saya berikan, katakan 'Maaf, saya tidak memiliki informasi tersebut.'", r.clinic.Name)
}

func (r *Retriever) capabilitiesBlock() string {
	lines := []string{
		"",
		"Informasi tentang kemampuan Chatbot Asisten:",
		fmt.Sprintf("Chatbot Asisten ini dirancang untuk membantu Anda dengan informasi terkait dokter di %s.", r.clinic.Name),
		"Kemampuan utamanya meliputi:",
		"- Memberikan daftar semua dokter yang tersedia.",
		"- Merekomendasikan dokter berdasarkan keluhan atau spesialisasi (misalnya, untuk sakit gigi, sakit kepala, demam, flu, batuk, pilek, atau terkait anak/bayi).",
		"- Menjawab pertanyaan terkait informasi umum klinik seperti alamat, nomor telepon, dan jam buka.",
		"Chatbot ini tidak dapat membuat booking atau mengubah jadwal secara langsung, tetapi dapat memandu Anda untuk menemukan informasi dokter.",
		"",
	}
	return strings.Join(lines, "\n")
}

func doctorLines(doctors []scheduling.Doctor) string {
	var b strings.Builder
	for _, d := range doctors {
		fmt.Fprintf(&b, "- Nama: %s, Spesialisasi: %s\n", d.Name, d.Specialty)
	}
	return b.String()
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
