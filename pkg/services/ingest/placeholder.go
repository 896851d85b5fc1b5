package ingest

import "fmt"

// placeholders put into the prompt instead of extracted text
const (
	NoTextInImage       = "[No se detectó texto en la imagen.]"
	UnreadableImage     = "[No se pudo leer la imagen.]"
	UnintelligibleAudio = "[No se pudo entender el audio.]"
	UnsupportedFile     = "[Tipo de archivo no soportado.]"
)

// OCRServiceFailure 识别服务出错
func OCRServiceFailure(err error) string {
	return fmt.Sprintf("[Error con el servicio de reconocimiento de texto: %s]", err)
}

// SpeechServiceFailure 语音服务出错
func SpeechServiceFailure(err error) string {
	return fmt.Sprintf("[Error con el servicio de reconocimiento de voz: %s]", err)
}
