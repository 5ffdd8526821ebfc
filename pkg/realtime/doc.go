// Package realtime is a WebSocket client for OpenAI's Realtime API, reduced
// to what a telephony bridge needs: configure the session, stream caller
// audio in, and read model audio and transcripts out.
//
//	client := realtime.NewClient(apiKey, realtime.WithModel(realtime.ModelGPT4oRealtimePreview))
//	sess, err := client.Dial(ctx)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	for {
//	    ev, err := sess.ReadEvent()
//	    if errors.Is(err, realtime.ErrMalformed) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    switch ev.Type {
//	    case realtime.EventTypeSessionCreated:
//	        sess.UpdateSession(&realtime.SessionConfig{Voice: realtime.VoiceAlloy})
//	    case realtime.EventTypeResponseAudioDelta:
//	        play(ev.Audio)
//	    }
//	}
package realtime
