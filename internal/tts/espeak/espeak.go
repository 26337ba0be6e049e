// Package espeak speaks through libespeak-ng in synchronous playback mode.
package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
scing_espeak_init(const char *voice, int rate, int volume)
{
	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) <= 0)
	{ return -1; }

	espeak_VOICE spec;
	memset(&spec, 0, sizeof(spec));
	spec.languages = voice;
	if (espeak_SetVoiceByProperties(&spec) != EE_OK)
	{ return -2; }

	espeak_SetParameter(espeakRATE, rate, 0);
	espeak_SetParameter(espeakVOLUME, volume, 0);
	return 0;
}

static int
scing_espeak_say(const char *text)
{
	if (!text)
	{ return -1; }

	espeak_ERROR rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
	                               espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return (int)rc; }

	return espeak_Synchronize() == EE_OK ? 0 : -1;
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"scing/internal/tts"
)

// Engine owns the process-wide espeak-ng instance; create one per process.
type Engine struct {
	closed bool
}

// New initializes espeak-ng with the voice, rate and volume from s.
// Volume 1.0 maps to espeak's normal level of 100.
func New(s tts.Settings) (*Engine, error) {
	voice := s.Voice
	if voice == "" {
		voice = "en"
	}

	cvoice := C.CString(voice)
	defer C.free(unsafe.Pointer(cvoice))

	rc := C.scing_espeak_init(cvoice, C.int(s.Rate), C.int(s.Volume*100))
	if rc != 0 {
		return nil, fmt.Errorf("espeak init failed: %d", int(rc))
	}

	return &Engine{}, nil
}

// Say blocks until playback finishes; ctx cannot interrupt a running utterance.
func (e *Engine) Say(_ context.Context, text string) error {
	if e.closed {
		return errors.New("espeak engine closed")
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.scing_espeak_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}

func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	C.espeak_Terminate()
	return nil
}
