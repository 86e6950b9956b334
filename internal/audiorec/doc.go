// Package audiorec implements spec §6's audio recording side interface:
// capturing one utterance of 16-bit signed PCM mono audio to a WAV file.
// Recording goes to a temporary file on the fly; on utterance end the file
// is atomically renamed to a timestamp name, mirroring how Julius's own
// module server logs each recognized utterance to disk.
//
// Feature extraction is out of scope here, as it is for the recognizer
// core: this package only ever produces WAV bytes and files, never
// amodel.FrameVector values.
package audiorec
